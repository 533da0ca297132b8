package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a placed order. Items are snapshots taken at checkout and are never
// re-derived from the live catalogue.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            *string         `json:"userId,omitempty" db:"user_id"`
	Items             []OrderItem     `json:"items"`
	Subtotal          int64           `json:"subtotal" db:"subtotal"`
	Discount          int64           `json:"discount" db:"discount"`
	ShippingCost      int64           `json:"shippingCost" db:"shipping_cost"`
	Total             int64           `json:"total" db:"total"`
	CouponCode        *string         `json:"couponCode,omitempty" db:"coupon_code"`
	PaymentMethod     string          `json:"paymentMethod" db:"payment_method"`
	ShippingMethod    string          `json:"shippingMethod" db:"shipping_method"`
	AddressID         *uuid.UUID      `json:"addressId,omitempty" db:"address_id"`
	Address           *Address        `json:"address,omitempty"`
	Status            OrderStatus     `json:"status" db:"status"`
	TrackingNumber    *string         `json:"trackingNumber,omitempty" db:"tracking_number"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty" db:"estimated_delivery"`
	Note              string          `json:"note,omitempty" db:"note"`
	Returns           []ReturnRequest `json:"returns,omitempty"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is the frozen copy of a purchased line.
type OrderItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"-" db:"order_id"`
	ProductID   string    `json:"productId" db:"product_id"`
	VariantID   string    `json:"variantId,omitempty" db:"variant_id"`
	Name        string    `json:"name" db:"name"`
	VariantName string    `json:"variantName,omitempty" db:"variant_name"`
	Color       string    `json:"color,omitempty" db:"color"`
	Size        string    `json:"size,omitempty" db:"size"`
	Image       string    `json:"image,omitempty" db:"image"`
	Price       int64     `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
}

// StockKey returns the stock bucket the item was taken from.
func (i OrderItem) StockKey() StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// LineTotal is price × quantity of the snapshot.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Address is a shipping address.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     *string   `json:"userId,omitempty" db:"user_id"`
	Recipient  string    `json:"recipient" db:"recipient"`
	Phone      string    `json:"phone" db:"phone"`
	Line1      string    `json:"line1" db:"line1"`
	Line2      string    `json:"line2,omitempty" db:"line2"`
	City       string    `json:"city" db:"city"`
	Province   string    `json:"province,omitempty" db:"province"`
	PostalCode string    `json:"postalCode,omitempty" db:"postal_code"`
}

// OrderRequest is the checkout submission.
type OrderRequest struct {
	CartID         string             `json:"cartId,omitempty"`
	UserID         *string            `json:"userId,omitempty"`
	Items          []OrderItemRequest `json:"items"`
	CouponCode     *string            `json:"couponCode,omitempty"`
	PaymentMethod  string             `json:"paymentMethod"`
	ShippingMethod string             `json:"shippingMethod"`
	ShippingCost   int64              `json:"shippingCost"`
	AddressID      *uuid.UUID         `json:"addressId,omitempty"`
	Address        *Address           `json:"address,omitempty"`
	Note           string             `json:"note,omitempty"`
	ExpectedTotal  *int64             `json:"total,omitempty"` // must equal the computed total when set
}

// OrderItemRequest is a single line in a checkout submission.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// StockKey returns the stock bucket the line draws from.
func (r OrderItemRequest) StockKey() StockKey {
	return StockKey{ProductID: r.ProductID, VariantID: r.VariantID}
}

// OrderPatch is an administrative order mutation. Nil fields are left untouched.
type OrderPatch struct {
	Status            *OrderStatus `json:"status,omitempty"`
	TrackingNumber    *string      `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time   `json:"estimatedDelivery,omitempty"`
	Note              *string      `json:"note,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.TrackingNumber == nil && p.EstimatedDelivery == nil && p.Note == nil
}
