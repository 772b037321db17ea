// Package events provides the publish/subscribe signal bus shared by the game
// core and its observers, and the completion queue that sequences work behind
// presentation.
package events

// Kind names a signal, for example "unit-moved".
type Kind string

// Event is a structured signal payload.
type Event interface {
	Kind() Kind
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus dispatches events synchronously to subscribers in subscription order.
// It is not safe for concurrent use; callers serialize access.
type Bus struct {
	handlers map[Kind][]subscription
	all      []subscription
	nextID   int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]subscription)}
}

// Subscribe registers fn for events of the given kind. The returned func removes it.
func (b *Bus) Subscribe(kind Kind, fn Handler) func() {
	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: fn})
	return func() {
		b.handlers[kind] = remove(b.handlers[kind], id)
	}
}

// SubscribeAll registers fn for every event, after kind-specific handlers run.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() {
		b.all = remove(b.all, id)
	}
}

// Publish delivers e to every current subscriber. Handlers added or removed
// while publishing take effect from the next Publish.
func (b *Bus) Publish(e Event) {
	subs := append([]subscription(nil), b.handlers[e.Kind()]...)
	subs = append(subs, b.all...)
	for _, s := range subs {
		s.fn(e)
	}
}

// Count returns the number of handlers registered for kind.
func (b *Bus) Count(kind Kind) int {
	return len(b.handlers[kind])
}

func remove(subs []subscription, id int) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
