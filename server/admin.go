package server

import (
	"dealspot-web/pkg/deals"
	"net/http"
	"strings"
)

type adminData struct {
	Reports []*deals.CommentReport
	Bans    []*deals.Ban
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.showAdmin(w, r, sess, http.StatusOK, nil)
}

func (s *Server) showAdmin(w http.ResponseWriter, r *http.Request, sess *Session, status int, errs map[string]string) {
	ctx := r.Context()
	token, _ := sess.Token(ctx)

	var data adminData
	var err error
	if data.Reports, err = s.backend.Reports(ctx, token); err != nil {
		s.logger.Warn("Failed to list reports", "error", err)
		sess.Failure("Could not load reported comments")
	}
	if data.Bans, err = s.backend.Bans(ctx, token); err != nil {
		s.logger.Warn("Failed to list bans", "error", err)
		sess.Failure("Could not load suspended users")
	}
	s.render(w, sess, status, "admin.tmpl", &page{
		Title:  "Admin",
		Nav:    "admin",
		Errors: errs,
		Form:   r.PostForm,
		Data:   data,
	})
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := banForm{UserID: formText(r.PostForm, "user_id"), Reason: formText(r.PostForm, "reason")}
	if errs := s.check(form); errs != nil {
		s.showAdmin(w, r, sess, http.StatusUnprocessableEntity, errs)
		return
	}
	if form.UserID == sess.User().ID {
		s.showAdmin(w, r, sess, http.StatusUnprocessableEntity, map[string]string{"user_id": "You cannot suspend yourself"})
		return
	}
	token, _ := sess.Token(r.Context())
	if err := s.backend.BanUser(r.Context(), token, form.UserID, form.Reason); err != nil {
		s.failure(sess, "suspend user", err)
	} else {
		s.logger.Info("User banned", "user", form.UserID, "by", sess.User().ID)
		sess.Success("User suspended")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request, sess *Session) {
	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	if err := s.backend.UnbanUser(r.Context(), token, userID); err != nil {
		s.failure(sess, "lift suspension", err)
	} else {
		s.logger.Info("User unbanned", "user", userID, "by", sess.User().ID)
		sess.Success("Suspension lifted")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	if err := s.backend.DeleteComment(r.Context(), token, id); err != nil {
		s.failure(sess, "delete comment", err)
	} else {
		s.logger.Info("Comment deleted", "comment", id, "by", sess.User().ID)
		sess.Success("Comment deleted")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleDismissReport(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	if err := s.backend.DismissReport(r.Context(), token, id); err != nil {
		s.failure(sess, "dismiss report", err)
	} else {
		sess.Success("Report dismissed")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
