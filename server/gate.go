package server

import (
	"net/http"
	"net/url"
	"strings"
)

// sessionHandler is a handler that runs with a signed-in session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// signedIn requires a signed-in session. Banned users are let through.
func (s *Server) signedIn(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.lookup(r)
		if sess == nil || sess.User() == nil {
			if wantsJSON(r) || r.URL.Path == "/events" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
				return
			}
			next := r.URL.Path
			if r.Method == http.MethodGet && r.URL.RawQuery != "" {
				next += "?" + r.URL.RawQuery
			}
			if r.Method != http.MethodGet {
				next = r.Referer()
				if u, err := url.Parse(next); err == nil {
					next = u.RequestURI()
				}
			}
			http.Redirect(w, r, "/login?next="+url.QueryEscape(safeNext(next, "/restaurants")), http.StatusSeeOther)
			return
		}
		h(w, r, sess)
	}
}

// customer requires a signed-in user who is not suspended.
func (s *Server) customer(h sessionHandler) http.HandlerFunc {
	return s.signedIn(func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if sess.User().Banned {
			if wantsJSON(r) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "account suspended"})
				return
			}
			http.Redirect(w, r, "/suspended", http.StatusSeeOther)
			return
		}
		h(w, r, sess)
	})
}

// partner requires a partner or admin.
func (s *Server) partner(h sessionHandler) http.HandlerFunc {
	return s.customer(func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if !sess.User().IsPartner() {
			s.logger.Warn("Partner route denied", "path", r.URL.Path, "user", sess.User().ID)
			s.renderNotFound(w, r, sess)
			return
		}
		h(w, r, sess)
	})
}

// admin requires an admin.
func (s *Server) admin(h sessionHandler) http.HandlerFunc {
	return s.customer(func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if !sess.User().IsAdmin() {
			s.logger.Warn("Admin route denied", "path", r.URL.Path, "user", sess.User().ID)
			s.renderNotFound(w, r, sess)
			return
		}
		h(w, r, sess)
	})
}
