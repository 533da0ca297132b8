package model

import "errors"

// ErrorKind classifies a domain error for the transport layer.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeMissingField    = "MISSING_FIELD"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeUnauthorised    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeInvalidQuantity = "INVALID_QUANTITY"

	ErrCodeCouponNotFound          = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive          = "COUPON_INACTIVE"
	ErrCodeCouponNotStarted        = "COUPON_NOT_STARTED"
	ErrCodeCouponExpired           = "COUPON_EXPIRED"
	ErrCodeCouponUsageCapReached   = "COUPON_USAGE_CAP_REACHED"
	ErrCodeCouponPerUserCapReached = "COUPON_PER_USER_CAP_REACHED"
	ErrCodeCouponMinOrderNotMet    = "COUPON_MIN_ORDER_NOT_MET"
	ErrCodeCouponNoEligibleItems   = "COUPON_NO_ELIGIBLE_ITEMS"

	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeVariantNotFound   = "VARIANT_NOT_FOUND"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"

	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeAddressNotFound   = "ADDRESS_NOT_FOUND"
	ErrCodeIllegalTransition = "ILLEGAL_TRANSITION"
	ErrCodeTotalMismatch     = "TOTAL_MISMATCH"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeMissingCheckout   = "MISSING_CHECKOUT_FIELD"
	ErrCodeInvalidStatus     = "INVALID_STATUS"

	ErrCodeReturnNotFound         = "RETURN_NOT_FOUND"
	ErrCodeOrderNotReturnable     = "ORDER_NOT_RETURNABLE"
	ErrCodeReturnItemUnknown      = "RETURN_ITEM_UNKNOWN"
	ErrCodeReturnQuantityExceeded = "RETURN_QUANTITY_EXCEEDED"
	ErrCodeRefundExceedsTotal     = "REFUND_EXCEEDS_TOTAL"
	ErrCodeInvalidRefund          = "INVALID_REFUND"
)

// DomainError is a business-rule failure that is safe to show to the caller.
type DomainError struct {
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new validation error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindValidation,
	}
}

func newNotFound(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindNotFound}
}

func newConflict(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// AsDomainError unwraps err into a DomainError if it carries one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Coupon errors, checked in this order by the coupon engine.
var (
	ErrCouponNotFound          = newNotFound(ErrCodeCouponNotFound, "Discount code not found")
	ErrCouponInactive          = NewDomainError(ErrCodeCouponInactive, "Discount code is not active")
	ErrCouponNotStarted        = NewDomainError(ErrCodeCouponNotStarted, "Discount code is not valid yet")
	ErrCouponExpired           = NewDomainError(ErrCodeCouponExpired, "Discount code has expired")
	ErrCouponUsageCapReached   = newConflict(ErrCodeCouponUsageCapReached, "Discount code usage limit has been reached")
	ErrCouponPerUserCapReached = newConflict(ErrCodeCouponPerUserCapReached, "You have already used this discount code the maximum number of times")
	ErrCouponMinOrderNotMet    = NewDomainError(ErrCodeCouponMinOrderNotMet, "Order total is below the minimum required for this discount code")
	ErrCouponNoEligibleItems   = NewDomainError(ErrCodeCouponNoEligibleItems, "No item in your cart is eligible for this discount code")
)

// Catalogue and inventory errors
var (
	ErrProductNotFound   = newNotFound(ErrCodeProductNotFound, "One or more products not found")
	ErrVariantNotFound   = newNotFound(ErrCodeVariantNotFound, "One or more product variants not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInsufficientStock = newConflict(ErrCodeInsufficientStock, "Not enough stock to complete the order")
)

// Order errors
var (
	ErrOrderNotFound     = newNotFound(ErrCodeOrderNotFound, "Order not found")
	ErrAddressNotFound   = newNotFound(ErrCodeAddressNotFound, "Shipping address not found")
	ErrIllegalTransition = newConflict(ErrCodeIllegalTransition, "Status change is not allowed from the current status")
	ErrTotalMismatch     = NewDomainError(ErrCodeTotalMismatch, "Order total does not match the cart contents")
	ErrEmptyCart         = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidStatus     = NewDomainError(ErrCodeInvalidStatus, "Unknown status")
)

// Return errors
var (
	ErrReturnNotFound         = newNotFound(ErrCodeReturnNotFound, "Return request not found")
	ErrOrderNotReturnable     = newConflict(ErrCodeOrderNotReturnable, "Only delivered orders can be returned")
	ErrReturnItemUnknown      = NewDomainError(ErrCodeReturnItemUnknown, "Returned item is not part of this order")
	ErrReturnQuantityExceeded = NewDomainError(ErrCodeReturnQuantityExceeded, "Returned quantity exceeds the purchased quantity")
	ErrRefundExceedsTotal     = NewDomainError(ErrCodeRefundExceedsTotal, "Refund amount exceeds the refundable order total")
	ErrInvalidRefund          = NewDomainError(ErrCodeInvalidRefund, "Refund amount must not be negative")
)

// MissingField builds a validation error naming a required checkout field.
func MissingField(field string) *DomainError {
	return NewDomainError(ErrCodeMissingCheckout, field+" is required")
}

// InvalidInput builds a validation error with a caller-facing message.
func InvalidInput(message string) *DomainError {
	return NewDomainError(ErrCodeInvalidInput, message)
}
