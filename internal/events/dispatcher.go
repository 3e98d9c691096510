package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the queued dispatcher cannot accept an event.
var ErrQueueFull = errors.New("event queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{registry: registry{listeners: make(map[EventType][]EventHandler)}}
}

// Publish synchronously invokes handlers for the given event and joins their errors.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueuedDispatcher delivers events on a background goroutine so publishers
// never wait for slow handlers such as email delivery.
type QueuedDispatcher struct {
	registry
	queue          chan Event
	logger         *zap.Logger
	handlerTimeout time.Duration
	drainTimeout   time.Duration
}

// NewQueuedDispatcher creates a dispatcher buffering up to size events.
func NewQueuedDispatcher(size int, logger *zap.Logger) *QueuedDispatcher {
	if size <= 0 {
		size = 1
	}
	return &QueuedDispatcher{
		registry:       registry{listeners: make(map[EventType][]EventHandler)},
		queue:          make(chan Event, size),
		logger:         logger,
		handlerTimeout: 30 * time.Second,
		drainTimeout:   5 * time.Second,
	}
}

// Publish enqueues the event without blocking.
func (d *QueuedDispatcher) Publish(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("dropping event, queue full",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, then keeps delivering
// what is already queued for at most the drain timeout.
func (d *QueuedDispatcher) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			d.drain(ctx)
			return
		}
		select {
		case <-ctx.Done():
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *QueuedDispatcher) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.drainTimeout)
	defer cancel()

	for {
		if ctx.Err() != nil {
			if left := len(d.queue); left > 0 {
				d.logger.Warn("shutdown drain timed out, dropping queued events", zap.Int("dropped", left))
			}
			return
		}
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *QueuedDispatcher) deliver(ctx context.Context, event Event) {
	for _, handler := range d.handlers(event.Type) {
		hctx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
		if err := handler(hctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		cancel()
	}
}
