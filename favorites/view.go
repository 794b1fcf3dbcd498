package favorites

import (
	"dealspot-web/pkg/deals"
	"sync"
)

// updateBuffer bounds the changes a view holds for a slow stream reader.
const updateBuffer = 32

// View is a mounted screen: a private list of bookmarkable items that
// stays subscribed to the bus until Unmount.
type View struct {
	id     string
	screen string

	mu      sync.Mutex
	items   []deals.Bookmarkable
	unsubs  []func()
	updates chan deals.BookmarkChange
	closed  bool
}

// NewView creates a view over its own copies of items. The caller keeps
// the originals, which the bus never touches.
func NewView(id, screen string, items []deals.Bookmarkable) *View {
	owned := make([]deals.Bookmarkable, len(items))
	for i, item := range items {
		owned[i] = item.Clone()
	}
	return &View{
		id:      id,
		screen:  screen,
		items:   owned,
		updates: make(chan deals.BookmarkChange, updateBuffer),
	}
}

// ID returns the view id used by the event stream.
func (v *View) ID() string { return v.id }

// Screen returns the screen name, for logs.
func (v *View) Screen() string { return v.screen }

// Listen subscribes the view to changes of typ until Unmount.
func (v *View) Listen(bus *Bus, typ deals.EntityType) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.unsubs = append(v.unsubs, bus.Subscribe(typ, v.receive))
}

// receive patches the matching item and forwards the change to Updates.
func (v *View) receive(change deals.BookmarkChange) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || !v.set(change.Type, change.ID, change.IsBookmarked) {
		return
	}
	select {
	case v.updates <- change:
	default:
		// Reader is behind; the next page load refetches anyway.
	}
}

// Flip sets the flag of the matching item, reporting whether one changed.
func (v *View) Flip(typ deals.EntityType, id int64, on bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.set(typ, id, on)
}

// set requires v.mu.
func (v *View) set(typ deals.EntityType, id int64, on bool) bool {
	changed := false
	for _, item := range v.items {
		if item.EntityType() == typ && item.EntityID() == id && item.Bookmarked() != on {
			item.SetBookmarked(on)
			changed = true
		}
	}
	return changed
}

// Bookmarked returns the flag of the matching item and whether the view holds it.
func (v *View) Bookmarked(typ deals.EntityType, id int64) (on, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, item := range v.items {
		if item.EntityType() == typ && item.EntityID() == id {
			return item.Bookmarked(), true
		}
	}
	return false, false
}

// Updates delivers the changes applied to this view. It is closed by Unmount.
func (v *View) Updates() <-chan deals.BookmarkChange {
	return v.updates
}

// Mounted reports whether Unmount has not been called.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Unmount unsubscribes the view and closes Updates. Calling it again is a no-op.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsubs := v.unsubs
	v.unsubs = nil
	close(v.updates)
	v.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
