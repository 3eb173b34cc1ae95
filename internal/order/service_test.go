package order_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"brewhub/internal/logger"
	"brewhub/internal/models"
	"brewhub/internal/order"
)

// Mock implementations

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateOrderWithItems(ctx context.Context, o models.Order, items []models.CartItem, trackingRecord models.OrderTracking) error {
	args := m.Called(ctx, o, items, trackingRecord)
	return args.Error(0)
}

func (m *MockDBLayer) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockDBLayer) GetCartItemsByOrder(ctx context.Context, orderID string) ([]models.CartItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *MockDBLayer) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuItem), args.Error(1)
}

type MockOrderPublisher struct {
	mock.Mock
}

func (m *MockOrderPublisher) PublishOrderCreated(o models.Order) error {
	args := m.Called(o)
	return args.Error(0)
}

func newService(db *MockDBLayer, kafka *MockOrderPublisher) *order.OrderService {
	return order.NewOrderService(db, kafka, logger.NewLogger())
}

func validRequest() models.OrderRequest {
	return models.OrderRequest{
		CustomerName:  "Alex",
		CustomerEmail: "alex@example.com",
		PickupName:    "Alex",
		Items: []models.CartItemRequest{
			{MenuItemID: "latte", Size: models.SizeMedium, Quantity: 1, Milk: models.MilkOat, SugarLevel: 1, Shots: 2},
		},
	}
}

func TestPlaceOrderComputesPriceFromMenu(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	mockDB.On("GetMenuItem", mock.Anything, "latte").Return(&models.MenuItem{
		ID: "latte", Name: "Caffe Latte", BasePrice: 4.00, Available: true,
	}, nil)
	mockDB.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockKafka.On("PublishOrderCreated", mock.Anything).Return(nil)

	resp, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	// 4.00 base + 0.50 medium + 0.70 oat + 0.80 second shot
	assert.Equal(t, 6.00, resp.Total)
	assert.Equal(t, models.StatusPlaced, resp.Status)
	assert.NotEmpty(t, resp.OrderID)

	createCall := mockDB.Calls[1]
	items := createCall.Arguments.Get(2).([]models.CartItem)
	require.Len(t, items, 1)
	assert.Equal(t, 6.00, items[0].UnitPrice)

	trackingRecord := createCall.Arguments.Get(3).(models.OrderTracking)
	assert.Equal(t, models.StatusPlaced, trackingRecord.Status)
	assert.Equal(t, resp.OrderID, trackingRecord.OrderID)
	assert.False(t, trackingRecord.PlacedAt.IsZero())
}

func TestPlaceOrderMultipliesByQuantity(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	req := validRequest()
	req.Items = []models.CartItemRequest{
		{MenuItemID: "espresso", Size: models.SizeSmall, Quantity: 3, Milk: models.MilkNone, SugarLevel: 0, Shots: 1},
	}

	mockDB.On("GetMenuItem", mock.Anything, "espresso").Return(&models.MenuItem{
		ID: "espresso", Name: "Espresso", BasePrice: 2.50, Available: true,
	}, nil)
	mockDB.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockKafka.On("PublishOrderCreated", mock.Anything).Return(nil)

	resp, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 7.50, resp.Total)
}

func TestPlaceOrderUnknownMenuItem(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	req := validRequest()
	req.Items[0].MenuItemID = "unicorn-frappe"

	mockDB.On("GetMenuItem", mock.Anything, "unicorn-frappe").Return(nil, sql.ErrNoRows)

	resp, err := svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
	assert.Nil(t, resp)
	mockDB.AssertNotCalled(t, "CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrderUnavailableMenuItem(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	req := validRequest()
	req.Items[0].MenuItemID = "matcha"

	mockDB.On("GetMenuItem", mock.Anything, "matcha").Return(&models.MenuItem{
		ID: "matcha", Name: "Matcha Latte", BasePrice: 4.80, Available: false,
	}, nil)

	resp, err := svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
	assert.Nil(t, resp)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.OrderRequest)
	}{
		{"missing customer name", func(r *models.OrderRequest) { r.CustomerName = "" }},
		{"missing pickup name", func(r *models.OrderRequest) { r.PickupName = "" }},
		{"no items", func(r *models.OrderRequest) { r.Items = nil }},
		{"bad size", func(r *models.OrderRequest) { r.Items[0].Size = "VENTI" }},
		{"bad milk", func(r *models.OrderRequest) { r.Items[0].Milk = "ALMOND" }},
		{"zero quantity", func(r *models.OrderRequest) { r.Items[0].Quantity = 0 }},
		{"sugar out of range", func(r *models.OrderRequest) { r.Items[0].SugarLevel = 6 }},
		{"too many shots", func(r *models.OrderRequest) { r.Items[0].Shots = 5 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockDB := new(MockDBLayer)
			mockKafka := new(MockOrderPublisher)
			svc := newService(mockDB, mockKafka)

			req := validRequest()
			tc.mutate(&req)

			resp, err := svc.PlaceOrder(context.Background(), req)
			assert.ErrorIs(t, err, order.ErrInvalidOrder)
			assert.Nil(t, resp)
			mockDB.AssertNotCalled(t, "GetMenuItem", mock.Anything, mock.Anything)
		})
	}
}

func TestPlaceOrderSurvivesKafkaFailure(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	mockDB.On("GetMenuItem", mock.Anything, "latte").Return(&models.MenuItem{
		ID: "latte", Name: "Caffe Latte", BasePrice: 4.00, Available: true,
	}, nil)
	mockDB.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockKafka.On("PublishOrderCreated", mock.Anything).Return(assert.AnError)

	resp, err := svc.PlaceOrder(context.Background(), validRequest())

	// The order is durable; a missed broker notification is only a log line.
	assert.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestGetOrderNotFound(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	mockDB.On("GetOrderByID", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	resp, err := svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.Nil(t, resp)
}

func TestGetOrderWithItems(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockOrderPublisher)
	svc := newService(mockDB, mockKafka)

	mockDB.On("GetOrderByID", mock.Anything, "order-1").Return(&models.Order{
		OrderID: "order-1", PickupName: "Alex", Total: 6.00,
	}, nil)
	mockDB.On("GetCartItemsByOrder", mock.Anything, "order-1").Return([]models.CartItem{
		{OrderID: "order-1", MenuItemID: "latte", Quantity: 1, UnitPrice: 6.00},
	}, nil)

	resp, err := svc.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", resp.Order.OrderID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "latte", resp.Items[0].MenuItemID)
}
