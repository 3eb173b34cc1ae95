package kafka

import (
	"encoding/json"

	sharedkafka "brewhub/internal/kafka"
	"brewhub/internal/models"
)

// Producer publishes order lifecycle events on the shared writer.
type Producer struct {
	Shared *sharedkafka.Producer
	Topic  string
}

func NewProducer(shared *sharedkafka.Producer, topic string) *Producer {
	return &Producer{Shared: shared, Topic: topic}
}

// PublishOrderCreated streams the new order to downstream consumers
// (kitchen display, notifications).
func (p *Producer) PublishOrderCreated(order models.Order) error {
	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.Shared.Publish(p.Topic, order.OrderID, msgBytes)
}
