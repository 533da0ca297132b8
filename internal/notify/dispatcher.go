package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// logDispatcher writes every event to the structured log. It is the admin
// live feed when no other channel is configured.
type logDispatcher struct {
	logger zerolog.Logger
	clock  func() time.Time
}

// NewLogDispatcher creates a dispatcher that logs events at info level.
func NewLogDispatcher(logger zerolog.Logger) Dispatcher {
	return &logDispatcher{
		logger: logger.With().Str("component", "event-log").Logger(),
		clock:  time.Now,
	}
}

func (d *logDispatcher) Notify(ctx context.Context, kind EventKind, payload any) error {
	event := Event{Kind: kind, Payload: payload, OccurredAt: d.clock().UTC()}
	d.logger.Info().
		Str("event", string(event.Kind)).
		Time("occurred_at", event.OccurredAt).
		Interface("payload", event.Payload).
		Msg("event dispatched")
	return nil
}

// multiDispatcher fans an event out to several dispatchers concurrently.
type multiDispatcher struct {
	dispatchers []Dispatcher
}

// NewMultiDispatcher returns a dispatcher that delivers to every d. All
// deliveries are attempted even if one fails; the first error is returned.
func NewMultiDispatcher(ds ...Dispatcher) Dispatcher {
	var live []Dispatcher
	for _, d := range ds {
		if d != nil {
			live = append(live, d)
		}
	}
	return &multiDispatcher{dispatchers: live}
}

func (m *multiDispatcher) Notify(ctx context.Context, kind EventKind, payload any) error {
	var g errgroup.Group
	for i, d := range m.dispatchers {
		g.Go(func() error {
			if err := d.Notify(ctx, kind, payload); err != nil {
				return fmt.Errorf("dispatcher %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, kind EventKind, payload any) error

func (f DispatcherFunc) Notify(ctx context.Context, kind EventKind, payload any) error {
	return f(ctx, kind, payload)
}
