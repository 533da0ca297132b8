package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatus is the lifecycle state of a return request.
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRefunded  ReturnStatus = "refunded"
	ReturnStatusRejected  ReturnStatus = "rejected"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusRefunded},
}

// Valid reports whether s is a known return status.
func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusRequested, ReturnStatusApproved, ReturnStatusRefunded, ReturnStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a return may move from s to next.
// A pending request may be re-saved as pending (note edits); settled
// requests accept nothing.
func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	if s == next {
		return s == ReturnStatusRequested
	}
	for _, allowed := range returnTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReturnRequest is a customer claim against a delivered order.
type ReturnRequest struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	OrderID      uuid.UUID    `json:"orderId" db:"order_id"`
	Items        []ReturnItem `json:"items"`
	Reason       string       `json:"reason" db:"reason"`
	Note         *string      `json:"note,omitempty" db:"note"`
	Status       ReturnStatus `json:"status" db:"status"`
	RequestedAt  time.Time    `json:"requestedAt" db:"requested_at"`
	DecisionAt   *time.Time   `json:"decisionAt,omitempty" db:"decision_at"`
	RefundAmount *int64       `json:"refundAmount,omitempty" db:"refund_amount"`
}

// ReturnItem references a purchased order item and how many units come back.
type ReturnItem struct {
	OrderItemID uuid.UUID `json:"orderItemId" db:"order_item_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
}

// ReturnRequestInput is the customer's return submission.
type ReturnRequestInput struct {
	Items  []ReturnItem `json:"items"`
	Reason string       `json:"reason"`
	Note   *string      `json:"note,omitempty"`
}

// ReturnDecision is an administrator's ruling on a return request.
type ReturnDecision struct {
	Status       ReturnStatus `json:"status"`
	RefundAmount *int64       `json:"refundAmount,omitempty"`
	Note         *string      `json:"note,omitempty"`
}
