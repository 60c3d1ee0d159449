// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Any subscribes a handler to every event type.
const Any EventType = "*"

var (
	ErrBusClosed  = errors.New("event bus is shutting down")
	ErrBufferFull = errors.New("event buffer full")
)

// Bus delivers ledger events to in-process subscribers. Publish is asynchronous
// and never blocks the caller: when the buffer is full the event is dropped.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	queue      chan Event
	bufferSize int
	// closed is guarded by mu so no event is queued after the final drain.
	closed bool

	statsMu   sync.Mutex
	published uint64
	dropped   uint64
	failed    uint64
}

// NewBus starts a bus with room for bufferSize queued events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers:   make(map[EventType]map[string]Handler),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan Event, bufferSize),
		bufferSize: bufferSize,
	}

	b.wg.Add(1)
	go b.loop()

	return b
}

// Subscribe registers handler for eventType, or for everything with Any.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: eventType}
}

// SubscribeFunc subscribes a plain function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues event for asynchronous delivery.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		b.count(&b.published)
		return nil
	default:
		b.count(&b.dropped)
		b.logger.Warn("Event buffer full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.String("event_id", event.ID()))
		return ErrBufferFull
	}
}

// PublishSync delivers event to its handlers on the calling goroutine and joins
// their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.snapshot(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for id, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.count(&b.failed)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("event_id", event.ID()),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handlers failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// snapshot copies the handlers for typ plus the Any handlers, so none run
// under the lock.
func (b *Bus) snapshot(typ EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Handler, len(b.handlers[typ])+len(b.handlers[Any]))
	for id, h := range b.handlers[typ] {
		out[id] = h
	}
	for id, h := range b.handlers[Any] {
		out[id] = h
	}
	return out
}

func (b *Bus) loop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// drain what was accepted before shutdown
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events, drains the queue and waits for handlers.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	BufferSize      int            `json:"buffer_size"`
	Pending         int            `json:"pending_events"`
	Published       uint64         `json:"published"`
	Dropped         uint64         `json:"dropped"`
	HandlerFailures uint64         `json:"handler_failures"`
	Handlers        map[string]int `json:"handlers_per_type"`
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	handlers := make(map[string]int, len(b.handlers))
	for typ, hs := range b.handlers {
		handlers[string(typ)] = len(hs)
	}
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return Stats{
		BufferSize:      b.bufferSize,
		Pending:         len(b.queue),
		Published:       b.published,
		Dropped:         b.dropped,
		HandlerFailures: b.failed,
		Handlers:        handlers,
	}
}

func (b *Bus) count(c *uint64) {
	b.statsMu.Lock()
	*c++
	b.statsMu.Unlock()
}
