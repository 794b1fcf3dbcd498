package favorites

import (
	"context"
	"dealspot-web/pkg/deals"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrToggleInFlight is returned when the same entity is already being toggled.
	ErrToggleInFlight = errors.New("toggle already in flight")
	// ErrInvalidID is returned for non-positive ids or unknown entity types.
	ErrInvalidID = errors.New("invalid entity id")
)

// Remote performs favorite mutations against the backend.
type Remote interface {
	SetRestaurantBookmark(ctx context.Context, token string, id int64, on bool) error
	SetDealFavorite(ctx context.Context, token string, id int64, on bool) error
	Favorites(ctx context.Context, token string) (*deals.Favorites, error)
}

// TokenSource supplies the bearer token for remote calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Toaster shows a transient message to the user.
type Toaster interface {
	Success(msg string)
	Failure(msg string)
}

// ToggleRequest describes one toggle. View is the invoking screen and may be nil.
type ToggleRequest struct {
	Type    deals.EntityType
	ID      int64
	Current bool
	View    *View
}

type toggleKey struct {
	typ deals.EntityType
	id  int64
}

// Synchronizer performs toggles for one session and fans the result out
// to the session's mounted views.
type Synchronizer struct {
	remote  Remote
	tokens  TokenSource
	toaster Toaster
	bus     *Bus
	set     *Set
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[toggleKey]struct{}
}

// NewSynchronizer wires a synchronizer to its session's bus and set.
func NewSynchronizer(remote Remote, tokens TokenSource, toaster Toaster, bus *Bus, set *Set, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		remote:   remote,
		tokens:   tokens,
		toaster:  toaster,
		bus:      bus,
		set:      set,
		logger:   logger,
		inFlight: make(map[toggleKey]struct{}),
	}
}

// Bus returns the session bus views listen on.
func (s *Synchronizer) Bus() *Bus { return s.bus }

// Set returns the session favorites set.
func (s *Synchronizer) Set() *Set { return s.set }

// Toggle flips the bookmark of one entity. The remote call happens first;
// only on success is the invoking view flipped, the change published and
// a success toast shown. A failure leaves every view untouched and shows
// exactly one failure toast. Mutations are never retried.
func (s *Synchronizer) Toggle(ctx context.Context, req ToggleRequest) (deals.BookmarkChange, error) {
	if req.ID <= 0 {
		return deals.BookmarkChange{}, fmt.Errorf("%w: %d", ErrInvalidID, req.ID)
	}
	if req.Type != deals.TypeRestaurant && req.Type != deals.TypeDeal {
		return deals.BookmarkChange{}, fmt.Errorf("%w: type %q", ErrInvalidID, req.Type)
	}

	key := toggleKey{typ: req.Type, id: req.ID}
	if !s.acquire(key) {
		s.logger.Debug("Ignoring toggle while previous one is in flight", "type", req.Type, "id", req.ID)
		return deals.BookmarkChange{}, ErrToggleInFlight
	}
	defer s.release(key)

	next := !req.Current
	if err := s.mutate(ctx, req.Type, req.ID, next); err != nil {
		s.logger.Warn("Bookmark toggle failed",
			"type", req.Type,
			"id", req.ID,
			"target", next,
			"error", err)
		s.toaster.Failure(failureMessage(req.Type, next))
		return deals.BookmarkChange{}, err
	}

	change := deals.BookmarkChange{ID: req.ID, Type: req.Type, IsBookmarked: next}
	if req.View != nil {
		req.View.Flip(req.Type, req.ID, next)
	}
	s.set.Apply(change)
	reached := s.bus.Publish(change)
	s.logger.Info("Bookmark toggled",
		"type", req.Type,
		"id", req.ID,
		"bookmarked", next,
		"listeners", reached)
	s.toaster.Success(successMessage(req.Type, next))
	return change, nil
}

func (s *Synchronizer) mutate(ctx context.Context, typ deals.EntityType, id int64, on bool) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	if typ == deals.TypeRestaurant {
		return s.remote.SetRestaurantBookmark(ctx, token, id, on)
	}
	return s.remote.SetDealFavorite(ctx, token, id, on)
}

func (s *Synchronizer) acquire(key toggleKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Synchronizer) release(key toggleKey) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Refresh refetches favorites from the backend, replaces the set and
// publishes a change for every id whose membership differs, so mounted
// views converge on the server's state.
func (s *Synchronizer) Refresh(ctx context.Context) (*deals.Favorites, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	fav, err := s.remote.Favorites(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh favorites: %w", err)
	}
	changes := s.set.Replace(fav)
	for _, change := range changes {
		s.bus.Publish(change)
	}
	s.logger.Debug("Favorites refreshed",
		"restaurants", len(fav.Restaurants),
		"deals", len(fav.Deals),
		"changes", len(changes))
	return fav, nil
}

func successMessage(typ deals.EntityType, on bool) string {
	switch {
	case typ == deals.TypeRestaurant && on:
		return "Restaurant bookmarked"
	case typ == deals.TypeRestaurant:
		return "Bookmark removed"
	case on:
		return "Deal added to favorites"
	default:
		return "Deal removed from favorites"
	}
}

func failureMessage(typ deals.EntityType, on bool) string {
	switch {
	case typ == deals.TypeRestaurant && on:
		return "Could not bookmark restaurant"
	case typ == deals.TypeRestaurant:
		return "Could not remove bookmark"
	case on:
		return "Could not add deal to favorites"
	default:
		return "Could not remove deal from favorites"
	}
}
