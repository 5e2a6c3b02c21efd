package pubsub

import (
	"sync"

	"github.com/atelierhq/marketapi/base/ctx"
)

// Topic names one event stream.
type Topic string

// Handler consumes one published event.
type Handler func(c ctx.Ctx, payload interface{})

// Unsubscribe removes its subscription when called. Safe to call more than
// once.
type Unsubscribe func()

// Bus is a synchronous publish/subscribe hub. Publish invokes handlers in
// subscription order on the caller's goroutine, so emission order is
// delivery order.
type Bus interface {
	Publish(c ctx.Ctx, topic Topic, payload interface{})
	Subscribe(topic Topic, h Handler) Unsubscribe
}

type bus struct {
	mu     sync.RWMutex
	nextId int
	subs   map[Topic][]*subscription
}

type subscription struct {
	id      int
	handler Handler
}

func New() Bus {
	return &bus{subs: map[Topic][]*subscription{}}
}

func (b *bus) Subscribe(topic Topic, h Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextId++
	sub := &subscription{id: b.nextId, handler: h}
	b.subs[topic] = append(b.subs[topic], sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == id {
				// full slice expression keeps published snapshots intact
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

func (b *bus) Publish(c ctx.Ctx, topic Topic, payload interface{}) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(c, payload)
	}
}
