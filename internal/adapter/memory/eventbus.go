package memory

import (
	"context"
	"sync"

	"github.com/qwei/desk-mcp/internal/domain/event"
	porteventbus "github.com/qwei/desk-mcp/internal/port/eventbus"
)

// EventBus is an in-process bus for single-replica runs and tests. Handlers
// run synchronously on the publisher's goroutine.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*busSubscription]porteventbus.Handler
}

var _ porteventbus.EventBus = (*EventBus)(nil)

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[event.Channel]map[*busSubscription]porteventbus.Handler),
	}
}

func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	eb.mu.RLock()
	handlers := make([]porteventbus.Handler, 0, len(eb.subs[ch]))
	for _, h := range eb.subs[ch] {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

func (eb *EventBus) Subscribe(_ context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	sub := &busSubscription{bus: eb, channel: ch}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*busSubscription]porteventbus.Handler)
	}
	eb.subs[ch][sub] = handler
	eb.mu.Unlock()

	return sub, nil
}

type busSubscription struct {
	bus     *EventBus
	channel event.Channel
}

func (s *busSubscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs[s.channel], s)
	s.bus.mu.Unlock()
}
