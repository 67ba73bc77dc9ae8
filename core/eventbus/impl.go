package eventbus

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"deskflow-desktop/core/event"
)

type subscription struct {
	id      string
	handler EventHandler
	name    string // empty matches every event
}

// channelEventBus is a channel-based implementation of EventBus.
type channelEventBus struct {
	eventChan     chan event.Event
	subscriptions map[string]*subscription
	mu            sync.RWMutex
	closeMu       sync.RWMutex // guards closed and sends on eventChan
	closed        bool
	wg            sync.WaitGroup
	nextID        atomic.Uint64
	logger        *slog.Logger
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int, logger *slog.Logger) EventBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	bus := &channelEventBus{
		eventChan:     make(chan event.Event, bufferSize),
		subscriptions: make(map[string]*subscription),
		logger:        logger,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// Publish publishes an event to all subscribers.
func (b *channelEventBus) Publish(e event.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- e:
	default:
		b.logger.Warn("Event bus full, dropping event", "event", e.EventName())
	}
}

// Subscribe subscribes to all events.
func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

// SubscribeName subscribes to events with the given name.
func (b *channelEventBus) SubscribeName(name string, handler EventHandler) string {
	return b.subscribe(name, handler)
}

func (b *channelEventBus) subscribe(name string, handler EventHandler) string {
	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)

	b.mu.Lock()
	b.subscriptions[id] = &subscription{
		id:      id,
		handler: handler,
		name:    name,
	}
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription by its ID.
func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subscriptions, subscriptionID)
	b.mu.Unlock()
}

// Close shuts down the event bus.
func (b *channelEventBus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.eventChan)
	b.closeMu.Unlock()

	b.wg.Wait()
}

func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.eventChan {
		b.deliverEvent(e)
	}
}

func (b *channelEventBus) deliverEvent(e event.Event) {
	b.mu.RLock()
	// Copy so handlers run without the lock held.
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	name := e.EventName()
	for _, sub := range subs {
		if sub.name != "" && sub.name != name {
			continue
		}
		b.invoke(sub, e)
	}
}

func (b *channelEventBus) invoke(sub *subscription, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "event", e.EventName(), "subscription", sub.id, "panic", r)
		}
	}()
	sub.handler(e)
}
