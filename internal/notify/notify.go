package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventKind names a lifecycle event announced to the back office.
type EventKind string

const (
	OrderCreated  EventKind = "OrderCreated"
	OrderUpdated  EventKind = "OrderUpdated"
	OrderDeleted  EventKind = "OrderDeleted"
	ReturnDecided EventKind = "ReturnDecided"
	TicketCreated EventKind = "TicketCreated"
)

// Event is a single notification.
type Event struct {
	Kind       EventKind `json:"kind"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Dispatcher delivers events to whatever channels are configured. Delivery,
// batching and channel selection are entirely up to the implementation.
type Dispatcher interface {
	Notify(ctx context.Context, kind EventKind, payload any) error
}

// Notifier wraps a Dispatcher for callers that must never fail because of
// delivery problems: errors are logged and dropped.
type Notifier struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewNotifier returns a Notifier over d. A nil d discards every event.
func NewNotifier(d Dispatcher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		dispatcher: d,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify forwards the event and swallows any error.
func (n *Notifier) Notify(ctx context.Context, kind EventKind, payload any) {
	if n == nil || n.dispatcher == nil {
		return
	}
	if err := n.dispatcher.Notify(ctx, kind, payload); err != nil {
		n.logger.Warn().Err(err).Str("event", string(kind)).Msg("notification failed")
	}
}
