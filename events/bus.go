package events

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Handler receives a published event.
type Handler func(Event)

type subscriber struct {
	id      uint64
	once    bool
	handler Handler
}

// Subscription identifies one registered handler. The zero value is inert.
type Subscription struct {
	bus  *Bus
	name Name
	id   uint64
}

// Unsubscribe removes the handler. Calling it more than once is harmless.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.Unsubscribe(s)
}

// Bus is a synchronous, single-goroutine publish/subscribe hub.
// Handlers run on the publisher's goroutine in subscription order.
type Bus struct {
	subs   map[Name][]subscriber
	nextID uint64
	logger *log.Logger
}

// NewBus creates an empty bus. A nil logger falls back to log.Default().
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		subs:   make(map[Name][]subscriber),
		logger: logger,
	}
}

// Subscribe registers handler for every event with the given name.
func (b *Bus) Subscribe(name Name, handler Handler) Subscription {
	return b.add(name, handler, false)
}

// SubscribeOnce registers handler for the next event with the given name only.
func (b *Bus) SubscribeOnce(name Name, handler Handler) Subscription {
	return b.add(name, handler, true)
}

func (b *Bus) add(name Name, handler Handler, once bool) Subscription {
	if b == nil || handler == nil {
		return Subscription{}
	}
	b.nextID++
	b.subs[name] = append(b.subs[name], subscriber{id: b.nextID, once: once, handler: handler})
	return Subscription{bus: b, name: name, id: b.nextID}
}

// Unsubscribe removes the handler behind sub.
func (b *Bus) Unsubscribe(sub Subscription) {
	if b == nil || sub.id == 0 {
		return
	}
	list := b.subs[sub.name]
	for i, s := range list {
		if s.id != sub.id {
			continue
		}
		out := make([]subscriber, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		if len(out) == 0 {
			delete(b.subs, sub.name)
		} else {
			b.subs[sub.name] = out
		}
		return
	}
}

// Publish delivers evt to a snapshot of the current subscribers of its name.
// A panicking handler is logged and does not stop the others.
func (b *Bus) Publish(evt Event) {
	if b == nil || evt == nil {
		return
	}
	name := evt.Name()
	snapshot := append([]subscriber(nil), b.subs[name]...)
	for _, s := range snapshot {
		if s.once {
			b.Unsubscribe(Subscription{bus: b, name: name, id: s.id})
		}
		b.invoke(name, s, evt)
	}
}

func (b *Bus) invoke(name Name, s subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler failed", "event", name, "subscription", s.id, "err", fmt.Sprint(r))
		}
	}()
	s.handler(evt)
}

// Clear drops the subscribers of the named events, or of every event when
// no names are given.
func (b *Bus) Clear(names ...Name) {
	if b == nil {
		return
	}
	if len(names) == 0 {
		b.subs = make(map[Name][]subscriber)
		return
	}
	for _, n := range names {
		delete(b.subs, n)
	}
}

// Count returns the number of handlers subscribed to name.
func (b *Bus) Count(name Name) int {
	if b == nil {
		return 0
	}
	return len(b.subs[name])
}

// On subscribes a typed handler for events of type T.
func On[T Event](b *Bus, fn func(T)) Subscription {
	var zero T
	return b.Subscribe(zero.Name(), func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}

// Once subscribes a typed handler for the next event of type T.
func Once[T Event](b *Bus, fn func(T)) Subscription {
	var zero T
	return b.SubscribeOnce(zero.Name(), func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}
