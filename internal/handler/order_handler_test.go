package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testOrder(id uuid.UUID, status model.OrderStatus) *model.Order {
	user := "user-1"
	return &model.Order{
		ID:     id,
		UserID: &user,
		Items: []model.OrderItem{
			{ID: uuid.New(), OrderID: id, ProductID: "P001", Name: "Tee", Price: 15000, Quantity: 2},
		},
		Subtotal:       30000,
		ShippingCost:   1000,
		Total:          31000,
		PaymentMethod:  "card",
		ShippingMethod: "standard",
		Status:         status,
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	validRequest := &model.OrderRequest{
		Items:          []model.OrderItemRequest{{ProductID: "P001", Quantity: 2}},
		PaymentMethod:  "card",
		ShippingMethod: "standard",
		ShippingCost:   1000,
	}

	tests := []struct {
		name           string
		requestBody    any
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			requestBody:    validRequest,
			mockReturn:     testOrder(orderID, model.OrderStatusProcessing),
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Coupon expired",
			requestBody:    validRequest,
			mockError:      model.ErrCouponExpired,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeCouponExpired,
			expectService:  true,
		},
		{
			name:           "Product not found",
			requestBody:    validRequest,
			mockError:      model.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   model.ErrCodeProductNotFound,
			expectService:  true,
		},
		{
			name:           "Insufficient stock",
			requestBody:    validRequest,
			mockError:      model.ErrInsufficientStock,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeInsufficientStock,
			expectService:  true,
		},
		{
			name:           "Missing field",
			requestBody:    &model.OrderRequest{Items: validRequest.Items},
			mockError:      model.MissingField("paymentMethod"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeMissingCheckout,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Service internal error",
			requestBody:    validRequest,
			mockError:      errors.New("database connection failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				mockService.On("CreateOrder", mock.Anything, mock.AnythingOfType("*model.OrderRequest")).
					Return(tt.mockReturn, tt.mockError)
			}

			w := serve(t, http.MethodPost, "/api/orders", handler.Create, "/api/orders", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.expectedCode, env.Code)
			assert.Equal(t, tt.expectedCode == "", env.Success)

			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("Response body", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *model.OrderRequest) bool {
			return req.PaymentMethod == "card" && len(req.Items) == 1 && req.Items[0].Quantity == 2
		})).Return(testOrder(orderID, model.OrderStatusProcessing), nil)

		w := serve(t, http.MethodPost, "/api/orders", NewOrderHandler(mockService, logger).Create, "/api/orders", validRequest)

		require.Equal(t, http.StatusCreated, w.Code)
		var order model.Order
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &order))
		assert.Equal(t, orderID, order.ID)
		assert.Equal(t, int64(31000), order.Total)
		assert.Equal(t, model.OrderStatusProcessing, order.Status)
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	tests := []struct {
		name           string
		path           string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			path:           "/api/orders/" + orderID.String(),
			mockReturn:     testOrder(orderID, model.OrderStatusShipped),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Order not found",
			path:           "/api/orders/" + orderID.String(),
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Service error",
			path:           "/api/orders/" + orderID.String(),
			mockError:      errors.New("timeout"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
		{
			name:           "Invalid UUID format",
			path:           "/api/orders/invalid-uuid",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				mockService.On("GetByID", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)
			}

			w := serve(t, http.MethodGet, "/api/orders/{id}", handler.GetByID, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_ListByUser(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		path           string
		setup          func(m *MockOrderService)
		expectedStatus int
		expectedLen    int
	}{
		{
			name: "Defaults",
			path: "/api/users/user-1/orders",
			setup: func(m *MockOrderService) {
				m.On("ListByUser", mock.Anything, "user-1", 0, 0).
					Return([]model.Order{*testOrder(uuid.New(), model.OrderStatusProcessing), *testOrder(uuid.New(), model.OrderStatusDelivered)}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    2,
		},
		{
			name: "Pagination",
			path: "/api/users/user-1/orders?limit=5&offset=10",
			setup: func(m *MockOrderService) {
				m.On("ListByUser", mock.Anything, "user-1", 5, 10).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    0,
		},
		{
			name:           "Invalid limit",
			path:           "/api/users/user-1/orders?limit=ten",
			setup:          func(*MockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid offset",
			path:           "/api/users/user-1/orders?offset=-x",
			setup:          func(*MockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Service error",
			path: "/api/users/user-1/orders",
			setup: func(m *MockOrderService) {
				m.On("ListByUser", mock.Anything, "user-1", 0, 0).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			tt.setup(mockService)

			w := serve(t, http.MethodGet, "/api/users/{userID}/orders", NewOrderHandler(mockService, logger).ListByUser, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var orders []model.Order
				require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &orders))
				assert.NotNil(t, orders)
				assert.Len(t, orders, tt.expectedLen)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Update(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()
	shipped := model.OrderStatusShipped

	tests := []struct {
		name           string
		path           string
		requestBody    any
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			path:           "/api/orders/" + orderID.String(),
			requestBody:    &model.OrderPatch{Status: &shipped},
			mockReturn:     testOrder(orderID, model.OrderStatusShipped),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Illegal transition",
			path:           "/api/orders/" + orderID.String(),
			requestBody:    &model.OrderPatch{Status: &shipped},
			mockError:      model.ErrIllegalTransition,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Unknown status",
			path:           "/api/orders/" + orderID.String(),
			requestBody:    map[string]string{"status": "lost"},
			mockError:      model.ErrInvalidStatus,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Not found",
			path:           "/api/orders/" + orderID.String(),
			requestBody:    &model.OrderPatch{Status: &shipped},
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			path:           "/api/orders/" + orderID.String(),
			requestBody:    "{",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid UUID format",
			path:           "/api/orders/nope",
			requestBody:    &model.OrderPatch{Status: &shipped},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			if tt.expectService {
				mockService.On("UpdateOrder", mock.Anything, orderID, mock.AnythingOfType("*model.OrderPatch")).
					Return(tt.mockReturn, tt.mockError)
			}

			w := serve(t, http.MethodPatch, "/api/orders/{id}", NewOrderHandler(mockService, logger).Update, tt.path, tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Delete(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("DeleteOrder", mock.Anything, orderID).Return(nil)

		w := serve(t, http.MethodDelete, "/api/orders/{id}", NewOrderHandler(mockService, logger).Delete, "/api/orders/"+orderID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"`+orderID.String()+`"}`, string(decodeEnvelope(t, w).Data))
		mockService.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("DeleteOrder", mock.Anything, orderID).Return(model.ErrOrderNotFound)

		w := serve(t, http.MethodDelete, "/api/orders/{id}", NewOrderHandler(mockService, logger).Delete, "/api/orders/"+orderID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, model.ErrCodeOrderNotFound, decodeEnvelope(t, w).Code)
	})
}
