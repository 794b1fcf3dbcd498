package favorites

import (
	"dealspot-web/pkg/deals"
	"slices"
	"sync"
)

// Set is the session's view of which restaurants and deals are favorited,
// independent of any one screen's rows.
type Set struct {
	mu  sync.RWMutex
	ids map[deals.EntityType]map[int64]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{ids: map[deals.EntityType]map[int64]struct{}{
		deals.TypeRestaurant: {},
		deals.TypeDeal:       {},
	}}
}

// Apply records a change.
func (s *Set) Apply(change deals.BookmarkChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.ids[change.Type]
	if !ok {
		return
	}
	if change.IsBookmarked {
		ids[change.ID] = struct{}{}
	} else {
		delete(ids, change.ID)
	}
}

// Has reports whether id of type typ is favorited.
func (s *Set) Has(typ deals.EntityType, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[typ][id]
	return ok
}

// IDs returns the favorited ids of type typ in ascending order.
func (s *Set) IDs(typ deals.EntityType) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.ids[typ]))
	for id := range s.ids[typ] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the total number of favorites of both types.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ids := range s.ids {
		n += len(ids)
	}
	return n
}

// Replace swaps in the server's favorites and returns one change per id
// whose membership differs, removals first.
func (s *Set) Replace(fav *deals.Favorites) []deals.BookmarkChange {
	next := map[deals.EntityType]map[int64]struct{}{
		deals.TypeRestaurant: {},
		deals.TypeDeal:       {},
	}
	if fav != nil {
		for _, r := range fav.Restaurants {
			next[deals.TypeRestaurant][r.ID] = struct{}{}
		}
		for _, d := range fav.Deals {
			next[deals.TypeDeal][d.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	prev := s.ids
	s.ids = next
	s.mu.Unlock()

	var changes []deals.BookmarkChange
	for _, typ := range []deals.EntityType{deals.TypeRestaurant, deals.TypeDeal} {
		for _, id := range sortedDiff(prev[typ], next[typ]) {
			changes = append(changes, deals.BookmarkChange{ID: id, Type: typ, IsBookmarked: false})
		}
	}
	for _, typ := range []deals.EntityType{deals.TypeRestaurant, deals.TypeDeal} {
		for _, id := range sortedDiff(next[typ], prev[typ]) {
			changes = append(changes, deals.BookmarkChange{ID: id, Type: typ, IsBookmarked: true})
		}
	}
	return changes
}

// sortedDiff returns the ids in a but not in b.
func sortedDiff(a, b map[int64]struct{}) []int64 {
	var out []int64
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
