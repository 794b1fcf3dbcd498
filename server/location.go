package server

import (
	"dealspot-web/geo"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := locationForm{Query: formText(r.PostForm, "query")}
	if errs := s.check(form); errs != nil {
		sess.Failure("Enter an address or place to search for")
		back(w, r, "/restaurants")
		return
	}

	places, err := s.geocoder.Search(r.Context(), form.Query)
	switch {
	case errors.Is(err, geo.ErrNoResults):
		sess.Failure("No matching location found")
	case err != nil:
		s.logger.Warn("Forward geocoding failed", "error", err)
		sess.Failure("Could not look up that location")
	default:
		place := places[0]
		sess.setLocation(&Location{Coordinate: place.Coordinate, Label: place.DisplayName})
		sess.Success("Location set to " + place.DisplayName)
	}
	back(w, r, "/restaurants")
}

// handleReverseLocation sets the location from device coordinates. The
// coordinates are kept even when the address lookup fails.
func (s *Server) handleReverseLocation(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := coordinateForm{Lat: formText(r.PostForm, "lat"), Lng: formText(r.PostForm, "lng")}
	if errs := s.check(form); errs != nil {
		sess.Failure("Your device reported an invalid position")
		back(w, r, "/restaurants")
		return
	}
	lat, _ := strconv.ParseFloat(form.Lat, 64)
	lng, _ := strconv.ParseFloat(form.Lng, 64)
	c := geo.Coordinate{Lat: lat, Lng: lng}

	loc := &Location{Coordinate: c, Label: fmt.Sprintf("%.4f, %.4f", lat, lng)}
	place, err := s.geocoder.Reverse(r.Context(), c)
	if err != nil {
		s.logger.Warn("Reverse geocoding failed", "error", err)
		sess.Failure("Could not look up your address")
	} else {
		loc.Label = place.DisplayName
		sess.Success("Location set to " + place.DisplayName)
	}
	sess.setLocation(loc)
	back(w, r, "/restaurants")
}

func (s *Server) handleClearLocation(w http.ResponseWriter, r *http.Request, sess *Session) {
	sess.setLocation(nil)
	back(w, r, "/restaurants")
}
