package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront/rdx"

	"github.com/rs/zerolog/log"
)

// Channel is the Redis pub/sub channel carrying every event.
const Channel = "storefront-events"

const (
	EventOrderCreated       = "order-created"
	EventOrderStatusChanged = "order-status-changed"
)

// Event is a domain event raised after a write has been committed.
type Event struct {
	Name        string    `json:"name"`
	OrderID     string    `json:"orderId,omitempty"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Status      string    `json:"status,omitempty"`
	Total       float64   `json:"total,omitempty"`
	At          time.Time `json:"at"`
}

// Handler reacts to one event. Its error is logged, never propagated.
type Handler func(ctx context.Context, evt Event) error

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Register subscribes h to events named name.
func Register(name string, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[name] = append(handlers[name], h)
}

// Emit publishes evt to Redis when it is configured, or dispatches it in the
// calling goroutine otherwise. It never fails the caller.
func Emit(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	if !rdx.Enabled() {
		Dispatch(ctx, evt)
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("event", evt.Name).Msg("[Emit] failed to marshal event")
		return
	}
	if err := rdx.Conn.Publish(ctx, Channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("event", evt.Name).Msg("[Emit] publish failed, dispatching locally")
		Dispatch(ctx, evt)
		return
	}
	log.Debug().Str("event", evt.Name).Str("channel", Channel).Msg("[Emit] event published")
}

// Dispatch runs every handler registered for evt.Name.
func Dispatch(ctx context.Context, evt Event) {
	mu.RLock()
	hs := append([]Handler(nil), handlers[evt.Name]...)
	mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, evt); err != nil {
			log.Error().Err(err).Str("event", evt.Name).Str("orderId", evt.OrderID).Msg("event handler failed")
		}
	}
}
