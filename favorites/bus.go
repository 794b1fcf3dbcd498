// Package favorites keeps bookmark flags consistent across a user's open screens.
package favorites

import (
	"dealspot-web/pkg/deals"
	"sync"
)

// Listener receives bookmark changes for one entity type.
type Listener func(deals.BookmarkChange)

type subscription struct {
	id  uint64
	typ deals.EntityType
	fn  Listener
}

// Bus is a typed publish/subscribe channel owned by one session.
// Delivery is synchronous and reaches only the listeners registered
// when Publish is called. Nothing is queued or replayed.
type Bus struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for changes of type typ and returns a func that
// removes it. The returned func is safe to call more than once.
func (b *Bus) Subscribe(typ deals.EntityType, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, typ: typ, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers change to every listener of its type, in subscription
// order, and returns how many were reached.
func (b *Bus) Publish(change deals.BookmarkChange) int {
	b.mu.Lock()
	targets := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if s.typ == change.Type {
			targets = append(targets, s.fn)
		}
	}
	b.mu.Unlock()

	// Listeners run without the lock so they may unsubscribe.
	for _, fn := range targets {
		fn(change)
	}
	return len(targets)
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
