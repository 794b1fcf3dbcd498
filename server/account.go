package server

import (
	"dealspot-web/api"
	"dealspot-web/auth"
	"encoding/json"
	"errors"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(r)
	next := safeNext(r.URL.Query().Get("next"), "/restaurants")
	if sess != nil && sess.User() != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, sess, http.StatusOK, "login.tmpl", &page{
		Title: "Sign in",
		Data:  map[string]any{"Next": next, "DevAuth": s.devAuth},
	})
}

// handleSession exchanges an identity-provider token for a session.
// The token comes from the form or an Authorization header.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.limiter.allow(ip, s.now()) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	next := safeNext(r.FormValue("next"), "/restaurants")
	form := sessionForm{Token: formText(r.PostForm, "token")}
	if bearer, ok := auth.BearerToken(r); ok {
		form.Token = bearer
	}

	sess := s.sessions.lookup(r)
	if errs := s.check(form); errs != nil {
		s.render(w, sess, http.StatusUnprocessableEntity, "login.tmpl", &page{
			Title:  "Sign in",
			Errors: errs,
			Data:   map[string]any{"Next": next, "DevAuth": s.devAuth},
		})
		return
	}

	claims, err := s.verifier.Verify(r.Context(), form.Token)
	if err != nil {
		s.logger.Warn("Sign-in rejected", "ip", ip, "error", err)
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrInvalidToken) {
			status = http.StatusBadGateway
		}
		if wantsJSON(r) {
			writeJSON(w, status, map[string]string{"error": "invalid token"})
			return
		}
		s.render(w, sess, status, "login.tmpl", &page{
			Title:  "Sign in",
			Errors: map[string]string{"token": "That sign-in token was not accepted"},
			Data:   map[string]any{"Next": next, "DevAuth": s.devAuth},
		})
		return
	}

	// Always start a fresh session on sign-in.
	if sess != nil {
		s.sessions.end(w, sess)
	}
	sess = s.sessions.create(w, r)
	sess.signIn(form.Token, claims)
	s.logger.Info("User signed in", "user", claims.Subject, "role", claims.Role, "banned", claims.Banned)

	// Seed the favorites set; a failure only costs the badge count.
	if !claims.Banned {
		if _, err := sess.syncer.Refresh(r.Context()); err != nil {
			s.logger.Warn("Failed to load favorites at sign-in", "user", claims.Subject, "error", err)
		}
	}

	if claims.Banned {
		next = "/suspended"
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"next": next})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := s.sessions.lookup(r); sess != nil {
		if u := sess.User(); u != nil {
			s.logger.Info("User signed out", "user", u.ID)
		}
		s.sessions.end(w, sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleSuspended(w http.ResponseWriter, r *http.Request, sess *Session) {
	if !sess.User().Banned {
		http.Redirect(w, r, "/restaurants", http.StatusSeeOther)
		return
	}
	s.render(w, sess, http.StatusOK, "suspended.tmpl", &page{Title: "Account suspended"})
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := disputeForm{Message: formText(r.PostForm, "message")}
	if errs := s.check(form); errs != nil {
		s.render(w, sess, http.StatusUnprocessableEntity, "suspended.tmpl", &page{
			Title:  "Account suspended",
			Errors: errs,
			Form:   r.PostForm,
		})
		return
	}

	token, _ := sess.Token(r.Context())
	if _, err := s.backend.SubmitDispute(r.Context(), token, form.Message); err != nil {
		s.logger.Warn("Failed to submit dispute", "user", sess.User().ID, "error", err)
		msg := "Could not submit your dispute. Please try again."
		if api.IsConflict(err) {
			msg = "You already have an open dispute."
		}
		sess.Failure(msg)
	} else {
		sess.Success("Dispute submitted. We will review it shortly.")
	}
	http.Redirect(w, r, "/suspended", http.StatusSeeOther)
}
