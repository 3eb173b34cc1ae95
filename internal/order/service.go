package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"brewhub/internal/logger"
	"brewhub/internal/models"
	"brewhub/internal/utils"
)

var (
	// ErrNotFound means the referenced order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidOrder wraps request validation failures.
	ErrInvalidOrder = errors.New("invalid order request")
)

type DBLayer interface {
	CreateOrderWithItems(ctx context.Context, order models.Order, items []models.CartItem, trackingRecord models.OrderTracking) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetCartItemsByOrder(ctx context.Context, orderID string) ([]models.CartItem, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

type OrderPublisher interface {
	PublishOrderCreated(order models.Order) error
}

type OrderService struct {
	DB     DBLayer
	Kafka  OrderPublisher
	Logger *logger.Logger
}

func NewOrderService(db DBLayer, kafka OrderPublisher, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Kafka: kafka, Logger: log}
}

// PlaceOrder validates the request, recomputes every line's price from
// the menu item's base price plus the modifier tables, and creates the
// order, its cart items and its PLACED tracking record in one
// transaction. The event log starts empty; the first event appears on
// the first transition.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()

	items := make([]models.CartItem, 0, len(req.Items))
	var total float64
	for _, line := range req.Items {
		menuItem, err := s.DB.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: unknown menu item %s", ErrInvalidOrder, line.MenuItemID)
			}
			return nil, fmt.Errorf("failed to load menu item %s: %w", line.MenuItemID, err)
		}
		if !menuItem.Available {
			return nil, fmt.Errorf("%w: menu item %s is not available", ErrInvalidOrder, line.MenuItemID)
		}

		unitPrice := menuItem.UnitPrice(line.Size, line.Milk, line.Shots)
		total += unitPrice * float64(line.Quantity)

		items = append(items, models.CartItem{
			OrderID:    orderID,
			MenuItemID: line.MenuItemID,
			Size:       line.Size,
			Quantity:   line.Quantity,
			Milk:       line.Milk,
			SugarLevel: line.SugarLevel,
			Shots:      line.Shots,
			UnitPrice:  unitPrice,
		})
	}
	total = math.Round(total*100) / 100

	order := models.Order{
		OrderID:       orderID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		PickupName:    req.PickupName,
		PickupCode:    utils.GeneratePickupCode(),
		Total:         total,
		CreatedAt:     now,
	}

	trackingRecord := models.OrderTracking{
		OrderID:  orderID,
		Status:   models.StatusPlaced,
		PlacedAt: now,
	}

	if err := s.DB.CreateOrderWithItems(ctx, order, items, trackingRecord); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.Logger.LogOrder("CREATE", orderID, fmt.Sprintf("%d items, total %.2f", len(items), total))

	if s.Kafka != nil {
		if err := s.Kafka.PublishOrderCreated(order); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish order created for %s: %v", orderID, err))
		}
	}

	return &models.OrderResponse{
		OrderID:    orderID,
		Status:     models.StatusPlaced,
		Total:      total,
		PickupName: order.PickupName,
		CreatedAt:  now,
	}, nil
}

// GetOrder returns the order with its cart items.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.OrderWithItems, error) {
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	items, err := s.DB.GetCartItemsByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}

	return &models.OrderWithItems{Order: *order, Items: items}, nil
}

func validateRequest(req models.OrderRequest) error {
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return fmt.Errorf("%w: customer name and email are required", ErrInvalidOrder)
	}
	if req.PickupName == "" {
		return fmt.Errorf("%w: pickup name is required", ErrInvalidOrder)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}

	for i, line := range req.Items {
		if line.MenuItemID == "" {
			return fmt.Errorf("%w: item %d has no menu item", ErrInvalidOrder, i)
		}
		if !line.Size.IsValid() {
			return fmt.Errorf("%w: item %d has invalid size %q", ErrInvalidOrder, i, line.Size)
		}
		if !line.Milk.IsValid() {
			return fmt.Errorf("%w: item %d has invalid milk %q", ErrInvalidOrder, i, line.Milk)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidOrder, i, line.Quantity)
		}
		if line.SugarLevel < 0 || line.SugarLevel > 5 {
			return fmt.Errorf("%w: item %d has sugar level %d", ErrInvalidOrder, i, line.SugarLevel)
		}
		if line.Shots < 0 || line.Shots > 4 {
			return fmt.Errorf("%w: item %d has %d espresso shots", ErrInvalidOrder, i, line.Shots)
		}
	}

	return nil
}
