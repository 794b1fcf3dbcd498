package server

import (
	"context"
	"dealspot-web/api"
	"dealspot-web/favorites"
	"dealspot-web/geo"
	"dealspot-web/pkg/deals"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	reviewTagsKey = "review-tags"
	reviewTagsTTL = time.Hour
)

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func restaurantItems(list []*deals.Restaurant) []deals.Bookmarkable {
	items := make([]deals.Bookmarkable, 0, len(list))
	for _, r := range list {
		items = append(items, r)
	}
	return items
}

func dealItems(list []*deals.Deal) []deals.Bookmarkable {
	items := make([]deals.Bookmarkable, 0, len(list))
	for _, d := range list {
		items = append(items, d)
	}
	return items
}

func listQuery(r *http.Request, sess *Session) api.ListQuery {
	q := api.ListQuery{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	if loc := sess.Location(); loc != nil {
		q.Lat, q.Lng, q.HasLocation = loc.Lat, loc.Lng, true
	}
	return q
}

// withDistances fills DistanceKm and orders located restaurants nearest first.
func withDistances(list []*deals.Restaurant, loc *Location) {
	if loc == nil {
		return
	}
	for _, r := range list {
		if r.HasLocation() {
			r.DistanceKm = geo.Distance(loc.Coordinate, geo.Coordinate{Lat: r.Latitude, Lng: r.Longitude})
		}
	}
	slices.SortStableFunc(list, func(a, b *deals.Restaurant) int {
		switch {
		case a.HasLocation() && !b.HasLocation():
			return -1
		case !a.HasLocation() && b.HasLocation():
			return 1
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
}

func (s *Server) handleRestaurants(w http.ResponseWriter, r *http.Request, sess *Session) {
	token, _ := sess.Token(r.Context())
	q := listQuery(r, sess)
	list, err := s.backend.Restaurants(r.Context(), token, q)
	if err != nil {
		s.logger.Warn("Failed to list restaurants", "error", err)
		sess.Failure("Could not load restaurants")
		list = nil
	}
	withDistances(list, sess.Location())

	view := sess.Mount("restaurants", restaurantItems(list), deals.TypeRestaurant)
	s.render(w, sess, http.StatusOK, "restaurants.tmpl", &page{
		Title:  "Restaurants",
		Nav:    "restaurants",
		ViewID: view.ID(),
		Data:   map[string]any{"Query": q.Search, "Restaurants": list},
	})
}

// reviewTags returns the tag list, cached across sessions.
func (s *Server) reviewTags(ctx context.Context, token string) []deals.ReviewTag {
	var tags []deals.ReviewTag
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, reviewTagsKey, &tags)
		if err != nil {
			s.logger.Warn("Failed to read review tags from cache", "error", err)
		}
		if hit {
			return tags
		}
	}

	tags, err := s.backend.ReviewTags(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to load review tags", "error", err)
		return nil
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, reviewTagsKey, tags, reviewTagsTTL); err != nil {
			s.logger.Warn("Failed to cache review tags", "error", err)
		}
	}
	return tags
}

func (s *Server) forgetReviewTags(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, reviewTagsKey); err != nil {
		s.logger.Warn("Failed to drop cached review tags", "error", err)
	}
}

func (s *Server) handleRestaurant(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.showRestaurant(w, r, sess, http.StatusOK, nil)
}

// showRestaurant renders the detail screen, with rating form errors if any.
func (s *Server) showRestaurant(w http.ResponseWriter, r *http.Request, sess *Session, status int, errs map[string]string) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	restaurant, err := s.backend.Restaurant(r.Context(), token, id)
	if err != nil {
		if api.IsNotFound(err) {
			s.renderNotFound(w, r, sess)
			return
		}
		s.logger.Warn("Failed to load restaurant", "id", id, "error", err)
		s.renderError(w, sess, "We could not load this restaurant. Please try again.")
		return
	}
	if loc := sess.Location(); loc != nil && restaurant.HasLocation() {
		restaurant.DistanceKm = geo.Distance(loc.Coordinate, geo.Coordinate{Lat: restaurant.Latitude, Lng: restaurant.Longitude})
	}

	var mine *deals.Rating
	if u := sess.User(); u != nil {
		for _, rating := range restaurant.Ratings {
			if rating.UserID == u.ID {
				mine = rating
				break
			}
		}
	}

	items := append([]deals.Bookmarkable{restaurant}, dealItems(restaurant.Deals)...)
	view := sess.Mount("restaurant", items, deals.TypeRestaurant, deals.TypeDeal)
	s.render(w, sess, status, "restaurant.tmpl", &page{
		Title:  restaurant.Name,
		Nav:    "restaurants",
		ViewID: view.ID(),
		Errors: errs,
		Form:   r.PostForm,
		Data: map[string]any{
			"Restaurant": restaurant,
			"Tags":       s.reviewTags(r.Context(), token),
			"MyRating":   mine,
		},
	})
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := bindRating(r.PostForm)
	if errs := s.check(form); errs != nil {
		s.showRestaurant(w, r, sess, http.StatusUnprocessableEntity, errs)
		return
	}

	ctx := r.Context()
	token, _ := sess.Token(ctx)
	if form.NewTag != "" {
		tag, err := s.backend.CreateReviewTag(ctx, token, form.NewTag)
		if err != nil {
			s.logger.Warn("Failed to create review tag", "name", form.NewTag, "error", err)
			sess.Failure("Could not add the new tag")
		} else {
			form.TagIDs = append(form.TagIDs, tag.ID)
			s.forgetReviewTags(ctx)
		}
	}

	var err error
	if form.RatingID > 0 {
		_, err = s.backend.UpdateRating(ctx, token, form.RatingID, form.input())
	} else {
		_, err = s.backend.CreateRating(ctx, token, id, form.input())
	}
	switch {
	case err == nil:
		sess.Success("Thanks for your rating")
	case api.IsConflict(err):
		sess.Failure("You already rated this restaurant")
	default:
		s.logger.Warn("Failed to save rating", "restaurant", id, "error", err)
		sess.Failure("Could not save your rating")
	}
	http.Redirect(w, r, fmt.Sprintf("/restaurants/%d", id), http.StatusSeeOther)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := reportForm{Reason: formText(r.PostForm, "reason")}
	if errs := s.check(form); errs != nil {
		sess.Failure("Please say why you are reporting this comment")
		back(w, r, "/restaurants")
		return
	}

	ctx := r.Context()
	token, _ := sess.Token(ctx)
	reported, err := s.backend.HasReported(ctx, token, id)
	switch {
	case err != nil:
		s.logger.Warn("Failed to check comment report", "comment", id, "error", err)
		sess.Failure("Could not report this comment")
	case reported:
		sess.Failure("You already reported this comment")
	default:
		if err := s.backend.ReportComment(ctx, token, id, form.Reason); err != nil {
			s.logger.Warn("Failed to report comment", "comment", id, "error", err)
			sess.Failure("Could not report this comment")
		} else {
			sess.Success("Comment reported. Thank you.")
		}
	}
	back(w, r, "/restaurants")
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request, sess *Session) {
	token, _ := sess.Token(r.Context())
	q := api.ListQuery{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	list, err := s.backend.Deals(r.Context(), token, q)
	if err != nil {
		s.logger.Warn("Failed to list deals", "error", err)
		sess.Failure("Could not load deals")
		list = nil
	}

	view := sess.Mount("deals", dealItems(list), deals.TypeDeal)
	s.render(w, sess, http.StatusOK, "deals.tmpl", &page{
		Title:  "Deals",
		Nav:    "deals",
		ViewID: view.ID(),
		Data:   map[string]any{"Query": q.Search, "Deals": list},
	})
}

// findDeal loads a deal, falling back to the deal list when the detail
// endpoint fails.
func (s *Server) findDeal(ctx context.Context, token string, id int64) (*deals.Deal, error) {
	deal, err := s.backend.Deal(ctx, token, id)
	if err == nil {
		return deal, nil
	}
	s.logger.Info("Deal detail failed, falling back to list", "id", id, "error", err)

	list, listErr := s.backend.Deals(ctx, token, api.ListQuery{})
	if listErr != nil {
		return nil, errors.Join(err, listErr)
	}
	for _, d := range list {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, err
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, ok := pathID(r)
	if !ok {
		s.renderNotFound(w, r, sess)
		return
	}
	token, _ := sess.Token(r.Context())
	deal, err := s.findDeal(r.Context(), token, id)
	if err != nil {
		if api.IsNotFound(err) {
			s.renderNotFound(w, r, sess)
			return
		}
		s.logger.Warn("Failed to load deal", "id", id, "error", err)
		s.renderError(w, sess, "We could not load this deal. Please try again.")
		return
	}

	view := sess.Mount("deal", []deals.Bookmarkable{deal}, deals.TypeDeal)
	s.render(w, sess, http.StatusOK, "deal.tmpl", &page{
		Title:  deal.Title,
		Nav:    "deals",
		ViewID: view.ID(),
		Data:   map[string]any{"Deal": deal, "Now": s.now()},
	})
}

// toggleResponse is returned to toggle requests that accept JSON.
type toggleResponse struct {
	Change *deals.BookmarkChange `json:"change,omitempty"`
	Error  string                `json:"error,omitempty"`
	Toasts []Toast               `json:"toasts"`
}

func (s *Server) handleToggle(typ deals.EntityType) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		fallback := "/restaurants"
		if typ == deals.TypeDeal {
			fallback = "/deals"
		}
		id, ok := pathID(r)
		if !ok {
			if wantsJSON(r) {
				writeJSON(w, http.StatusBadRequest, toggleResponse{Error: "invalid id", Toasts: []Toast{}})
				return
			}
			s.renderNotFound(w, r, sess)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		current, err := strconv.ParseBool(r.FormValue("current"))
		if err != nil {
			current = sess.syncer.Set().Has(typ, id)
		}

		req := favorites.ToggleRequest{
			Type:    typ,
			ID:      id,
			Current: current,
			View:    sess.View(r.FormValue("view")),
		}
		change, err := sess.syncer.Toggle(r.Context(), req)

		if !wantsJSON(r) {
			if errors.Is(err, favorites.ErrToggleInFlight) {
				sess.Failure("Still saving, please wait")
			}
			back(w, r, fmt.Sprintf("%s/%d", fallback, id))
			return
		}

		resp := toggleResponse{Toasts: sess.DrainToasts()}
		if resp.Toasts == nil {
			resp.Toasts = []Toast{}
		}
		status := http.StatusOK
		switch {
		case err == nil:
			resp.Change = &change
		case errors.Is(err, favorites.ErrToggleInFlight):
			status, resp.Error = http.StatusConflict, "toggle already in progress"
		case errors.Is(err, favorites.ErrInvalidID):
			status, resp.Error = http.StatusBadRequest, "invalid id"
		default:
			status, resp.Error = http.StatusBadGateway, "remote update failed"
		}
		writeJSON(w, status, resp)
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request, sess *Session) {
	fav, err := sess.syncer.Refresh(r.Context())
	if err != nil {
		s.logger.Warn("Failed to load favorites", "error", err)
		sess.Failure("Could not load your favorites")
		fav = &deals.Favorites{}
	}

	items := append(restaurantItems(fav.Restaurants), dealItems(fav.Deals)...)
	view := sess.Mount("favorites", items, deals.TypeRestaurant, deals.TypeDeal)
	s.render(w, sess, http.StatusOK, "favorites.tmpl", &page{
		Title:  "Favorites",
		Nav:    "favorites",
		ViewID: view.ID(),
		Data:   fav,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, sess *Session) {
	if _, err := sess.syncer.Refresh(r.Context()); err != nil {
		s.logger.Warn("Failed to refresh favorites", "error", err)
		sess.Failure("Could not refresh favorites")
	} else {
		sess.Success("Favorites updated")
	}
	back(w, r, "/favorites")
}
