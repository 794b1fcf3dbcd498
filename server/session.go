package server

import (
	"context"
	"dealspot-web/auth"
	"dealspot-web/favorites"
	"dealspot-web/geo"
	"dealspot-web/pkg/deals"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookie = "dealspot_session"
	sessionIdle   = 24 * time.Hour
	maxViews      = 16
	maxToasts     = 8
)

var errSignedOut = errors.New("not signed in")

// Toast is a transient message shown on the next page or toggle response.
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Location is the user's chosen position for distance sorting.
type Location struct {
	geo.Coordinate
	Label string
}

// Session is one browser's state: identity, toasts, location and the
// bus that keeps its open screens in sync.
type Session struct {
	id     string
	syncer *favorites.Synchronizer

	mu       sync.Mutex
	token    string
	claims   *auth.Claims
	toasts   []Toast
	location *Location
	views    []*favorites.View
	lastSeen time.Time
}

// ID returns the session id stored in the cookie.
func (s *Session) ID() string { return s.id }

// Token implements favorites.TokenSource.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", errSignedOut
	}
	return s.token, nil
}

// Success implements favorites.Toaster.
func (s *Session) Success(msg string) { s.toast("success", msg) }

// Failure implements favorites.Toaster.
func (s *Session) Failure(msg string) { s.toast("error", msg) }

func (s *Session) toast(kind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, Toast{Kind: kind, Message: msg})
	if len(s.toasts) > maxToasts {
		s.toasts = s.toasts[len(s.toasts)-maxToasts:]
	}
}

// DrainToasts returns and clears pending toasts.
func (s *Session) DrainToasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.toasts
	s.toasts = nil
	return out
}

// User returns the signed-in user, or nil.
func (s *Session) User() *deals.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return nil
	}
	u := s.claims.User()
	return &u
}

func (s *Session) signIn(token string, claims *auth.Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
}

// Location returns the chosen location, or nil.
func (s *Session) Location() *Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

func (s *Session) setLocation(loc *Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
}

// Mount creates a view over items subscribed to the given types.
// The oldest view is unmounted once the session holds more than maxViews.
func (s *Session) Mount(screen string, items []deals.Bookmarkable, types ...deals.EntityType) *favorites.View {
	view := favorites.NewView(uuid.NewString(), screen, items)
	for _, typ := range types {
		view.Listen(s.syncer.Bus(), typ)
	}

	s.mu.Lock()
	s.views = append(s.views, view)
	var evicted []*favorites.View
	if len(s.views) > maxViews {
		evicted = append(evicted, s.views[:len(s.views)-maxViews]...)
		s.views = append([]*favorites.View(nil), s.views[len(s.views)-maxViews:]...)
	}
	s.mu.Unlock()

	for _, v := range evicted {
		v.Unmount()
	}
	return view
}

// View finds a mounted view by id.
func (s *Session) View(id string) *favorites.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.views {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// Unmount removes and unmounts a view.
func (s *Session) Unmount(view *favorites.View) {
	s.mu.Lock()
	for i, v := range s.views {
		if v == view {
			s.views = append(s.views[:i:i], s.views[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	view.Unmount()
}

func (s *Session) unmountAll() {
	s.mu.Lock()
	views := s.views
	s.views = nil
	s.mu.Unlock()
	for _, v := range views {
		v.Unmount()
	}
}

// sessionStore keeps sessions in memory, keyed by cookie value.
type sessionStore struct {
	remote favorites.Remote
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionStore(remote favorites.Remote, logger *slog.Logger) *sessionStore {
	return &sessionStore{
		remote:   remote,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// lookup returns the session for r, or nil.
func (st *sessionStore) lookup(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[cookie.Value]
	if !ok {
		return nil
	}
	now := st.now()
	sess.mu.Lock()
	expired := now.Sub(sess.lastSeen) > sessionIdle
	if !expired {
		sess.lastSeen = now
	}
	sess.mu.Unlock()
	if expired {
		delete(st.sessions, cookie.Value)
		go sess.unmountAll()
		return nil
	}
	return sess
}

// create starts a new session and sets its cookie.
func (st *sessionStore) create(w http.ResponseWriter, r *http.Request) *Session {
	sess := &Session{id: uuid.NewString(), lastSeen: st.now()}
	sess.syncer = favorites.NewSynchronizer(st.remote, sess, sess, favorites.NewBus(), favorites.NewSet(),
		st.logger.With("session", sess.id[:8]))

	st.mu.Lock()
	st.pruneLocked()
	st.sessions[sess.id] = sess
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.id,
		Path:     "/",
		MaxAge:   int(sessionIdle.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// end removes the session and clears its cookie.
func (st *sessionStore) end(w http.ResponseWriter, sess *Session) {
	st.mu.Lock()
	delete(st.sessions, sess.id)
	st.mu.Unlock()
	sess.unmountAll()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// pruneLocked drops idle sessions. Requires st.mu.
func (st *sessionStore) pruneLocked() {
	now := st.now()
	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen) > sessionIdle
		sess.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			go sess.unmountAll()
		}
	}
}

func (st *sessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
