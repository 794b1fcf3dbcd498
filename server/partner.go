package server

import (
	"context"
	"dealspot-web/api"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// failure toasts a backend error from a management action.
func (s *Server) failure(sess *Session, action string, err error) {
	s.logger.Warn("Management action failed", "action", action, "user", sess.User().ID, "error", err)
	switch {
	case api.IsForbidden(err):
		sess.Failure("You do not have access to do that")
	case api.IsNotFound(err):
		sess.Failure("That item no longer exists")
	case api.Message(err) != "":
		sess.Failure("Could not " + action + ": " + api.Message(err))
	default:
		sess.Failure("Could not " + action)
	}
}

// invalid toasts field errors for forms that cannot be shown inline.
func invalid(sess *Session, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, strings.ReplaceAll(f, "_", " ")+": "+errs[f])
	}
	sess.Failure("Please fix: " + strings.Join(parts, "; "))
}

func prefixed(prefix string, errs map[string]string) map[string]string {
	if errs == nil {
		return nil
	}
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[prefix+"."+k] = v
	}
	return out
}

func partnerPath(restaurantID int64) string {
	if restaurantID <= 0 {
		return "/partner"
	}
	return fmt.Sprintf("/partner/restaurants/%d", restaurantID)
}

func (s *Server) handlePartner(w http.ResponseWriter, r *http.Request, sess *Session) {
	token, _ := sess.Token(r.Context())
	list, err := s.backend.MyRestaurants(r.Context(), token)
	if err != nil {
		s.logger.Warn("Failed to list partner restaurants", "error", err)
		sess.Failure("Could not load your restaurants")
	}
	s.render(w, sess, http.StatusOK, "partner.tmpl", &page{
		Title: "My restaurants",
		Nav:   "partner",
		Data:  list,
	})
}

func (s *Server) handleNewRestaurant(w http.ResponseWriter, _ *http.Request, sess *Session) {
	s.render(w, sess, http.StatusOK, "partner_form.tmpl", &page{Title: "New restaurant", Nav: "partner"})
}

func (s *Server) handleCreateRestaurant(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := bindRestaurant(r.PostForm)
	if errs := s.check(form); errs != nil {
		s.render(w, sess, http.StatusUnprocessableEntity, "partner_form.tmpl", &page{
			Title:  "New restaurant",
			Nav:    "partner",
			Errors: errs,
			Form:   r.PostForm,
		})
		return
	}
	token, _ := sess.Token(r.Context())
	created, err := s.backend.CreateRestaurant(r.Context(), token, form.input())
	if err != nil {
		s.failure(sess, "create restaurant", err)
		s.render(w, sess, http.StatusBadGateway, "partner_form.tmpl", &page{
			Title: "New restaurant",
			Nav:   "partner",
			Form:  r.PostForm,
		})
		return
	}
	s.logger.Info("Restaurant created", "id", created.ID, "user", sess.User().ID)
	sess.Success("Restaurant created")
	http.Redirect(w, r, partnerPath(created.ID), http.StatusSeeOther)
}

func (s *Server) handleEditRestaurant(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	s.showPartnerRestaurant(w, r, sess, id, http.StatusOK, nil)
}

// showPartnerRestaurant renders the management screen for one restaurant.
// Only the owner or an admin may see it.
func (s *Server) showPartnerRestaurant(w http.ResponseWriter, r *http.Request, sess *Session, id int64, status int, errs map[string]string) {
	token, _ := sess.Token(r.Context())
	restaurant, err := s.backend.Restaurant(r.Context(), token, id)
	if err != nil {
		if api.IsNotFound(err) {
			s.renderNotFound(w, r, sess)
			return
		}
		s.logger.Warn("Failed to load restaurant for editing", "id", id, "error", err)
		s.renderError(w, sess, "We could not load this restaurant. Please try again.")
		return
	}
	user := sess.User()
	if restaurant.OwnerID != user.ID && !user.IsAdmin() {
		s.logger.Warn("Restaurant edit denied", "id", id, "user", user.ID, "owner", restaurant.OwnerID)
		s.renderNotFound(w, r, sess)
		return
	}
	s.render(w, sess, status, "partner_restaurant.tmpl", &page{
		Title:  restaurant.Name,
		Nav:    "partner",
		Errors: errs,
		Form:   r.PostForm,
		Data:   restaurant,
	})
}

func (s *Server) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := bindRestaurant(r.PostForm)
	if errs := s.check(form); errs != nil {
		s.showPartnerRestaurant(w, r, sess, id, http.StatusUnprocessableEntity, prefixed("restaurant", errs))
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.UpdateRestaurant(r.Context(), token, id, form.input()); err != nil {
		s.failure(sess, "update restaurant", err)
	} else {
		sess.Success("Restaurant updated")
	}
	http.Redirect(w, r, partnerPath(id), http.StatusSeeOther)
}

func (s *Server) handleDeleteRestaurant(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	if err := s.backend.DeleteRestaurant(r.Context(), token, id); err != nil {
		s.failure(sess, "delete restaurant", err)
		http.Redirect(w, r, partnerPath(id), http.StatusSeeOther)
		return
	}
	s.logger.Info("Restaurant deleted", "id", id, "user", sess.User().ID)
	sess.Success("Restaurant deleted")
	http.Redirect(w, r, "/partner", http.StatusSeeOther)
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := sectionForm{Name: formText(r.PostForm, "name"), Position: int(formInt(r.PostForm, "position"))}
	if errs := s.check(form); errs != nil {
		s.showPartnerRestaurant(w, r, sess, id, http.StatusUnprocessableEntity, prefixed("section", errs))
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.CreateMenuSection(r.Context(), token, id, api.MenuSectionInput{Name: form.Name, Position: form.Position}); err != nil {
		s.failure(sess, "add menu section", err)
	} else {
		sess.Success("Menu section added")
	}
	http.Redirect(w, r, partnerPath(id), http.StatusSeeOther)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	restaurantID := formInt(r.PostForm, "restaurant_id")
	form := sectionForm{Name: formText(r.PostForm, "name"), Position: int(formInt(r.PostForm, "position"))}
	if errs := s.check(form); errs != nil {
		invalid(sess, errs)
		http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.UpdateMenuSection(r.Context(), token, id, api.MenuSectionInput{Name: form.Name, Position: form.Position}); err != nil {
		s.failure(sess, "update menu section", err)
	} else {
		sess.Success("Menu section updated")
	}
	http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.deleteAndReturn(w, r, sess, "delete menu section", "Menu section deleted", s.backend.DeleteMenuSection)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request, sess *Session) {
	sectionID, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	restaurantID := formInt(r.PostForm, "restaurant_id")
	form := itemForm{
		Name:        formText(r.PostForm, "name"),
		Description: formText(r.PostForm, "description"),
		Price:       formText(r.PostForm, "price"),
	}
	in, errs := form.input(s.check(form))
	if errs != nil {
		s.showPartnerRestaurant(w, r, sess, restaurantID, http.StatusUnprocessableEntity, prefixed(fmt.Sprintf("item-%d", sectionID), errs))
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.CreateMenuItem(r.Context(), token, sectionID, in); err != nil {
		s.failure(sess, "add menu item", err)
	} else {
		sess.Success("Menu item added")
	}
	http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	restaurantID := formInt(r.PostForm, "restaurant_id")
	form := itemForm{
		Name:        formText(r.PostForm, "name"),
		Description: formText(r.PostForm, "description"),
		Price:       formText(r.PostForm, "price"),
	}
	in, errs := form.input(s.check(form))
	if errs != nil {
		invalid(sess, errs)
		http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.UpdateMenuItem(r.Context(), token, id, in); err != nil {
		s.failure(sess, "update menu item", err)
	} else {
		sess.Success("Menu item updated")
	}
	http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.deleteAndReturn(w, r, sess, "delete menu item", "Menu item deleted", s.backend.DeleteMenuItem)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request, sess *Session) {
	restaurantID, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := bindDeal(r.PostForm)
	in, errs := form.input(s.check(form), s.loc)
	if errs != nil {
		s.showPartnerRestaurant(w, r, sess, restaurantID, http.StatusUnprocessableEntity, prefixed("deal", errs))
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.CreateDeal(r.Context(), token, restaurantID, in); err != nil {
		s.failure(sess, "create deal", err)
	} else {
		sess.Success("Deal created")
	}
	http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	restaurantID := formInt(r.PostForm, "restaurant_id")
	form := bindDeal(r.PostForm)
	in, errs := form.input(s.check(form), s.loc)
	if errs != nil {
		invalid(sess, errs)
		http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
		return
	}
	token, _ := sess.Token(r.Context())
	if _, err := s.backend.UpdateDeal(r.Context(), token, id, in); err != nil {
		s.failure(sess, "update deal", err)
	} else {
		sess.Success("Deal updated")
	}
	http.Redirect(w, r, partnerPath(restaurantID), http.StatusSeeOther)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.deleteAndReturn(w, r, sess, "delete deal", "Deal deleted", s.backend.DeleteDeal)
}

// deleteAndReturn runs a delete by path id and returns to the restaurant
// named by the restaurant_id form field.
func (s *Server) deleteAndReturn(w http.ResponseWriter, r *http.Request, sess *Session, action, done string,
	del func(ctx context.Context, token string, id int64) error) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	token, _ := sess.Token(r.Context())
	if err := del(r.Context(), token, id); err != nil {
		s.failure(sess, action, err)
	} else {
		sess.Success(done)
	}
	http.Redirect(w, r, partnerPath(formInt(r.PostForm, "restaurant_id")), http.StatusSeeOther)
}
