package handler

import (
	"context"

	"storefront/internal/inventory"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, id uuid.UUID, patch *model.OrderPatch) (*model.Order, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReturnService is a mock implementation of ReturnService.
type MockReturnService struct {
	mock.Mock
}

func (m *MockReturnService) RequestReturn(ctx context.Context, orderID uuid.UUID, in *model.ReturnRequestInput) (*model.ReturnRequest, error) {
	args := m.Called(ctx, orderID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnRequest), args.Error(1)
}

func (m *MockReturnService) Decide(ctx context.Context, id uuid.UUID, d *model.ReturnDecision) (*model.ReturnRequest, error) {
	args := m.Called(ctx, id, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnRequest), args.Error(1)
}

func (m *MockReturnService) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnRequest), args.Error(1)
}

// MockCouponService is a mock implementation of CouponService.
type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) Quote(ctx context.Context, req *model.ValidateCouponRequest) (*model.CouponQuote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CouponQuote), args.Error(1)
}

func (m *MockCouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) SetLine(ctx context.Context, cartID string, line model.OrderItemRequest) (*inventory.Reservation, error) {
	args := m.Called(ctx, cartID, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Reservation), args.Error(1)
}

func (m *MockCartService) Available(ctx context.Context, cartID string, key model.StockKey) (int, error) {
	args := m.Called(ctx, cartID, key)
	return args.Int(0), args.Error(1)
}

func (m *MockCartService) Clear(cartID string) int {
	args := m.Called(cartID)
	return args.Int(0)
}
