package server

import (
	"bytes"
	"dealspot-web/format"
	"dealspot-web/geo"
	"dealspot-web/pkg/deals"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"
)

// pages holds the parsed screen templates.
type pages struct {
	tmpl *template.Template
}

func newPages(now func() time.Time) *pages {
	timeAgo := func(t time.Time) string { return format.TimeAgo(t, now()) }
	funcs := template.FuncMap{
		"price":      format.FormatPrice,
		"cents":      format.CentsToPrice,
		"date":       format.FormatDate,
		"dateTime":   format.FormatDateTime,
		"dateInput":  format.DateTimeInput,
		"dealWindow": format.DealWindow,
		"distance":   geo.FormatDistance,
		"timeAgo":    timeAgo,
		"stars":      stars,
		"toggle":     newToggleButton,
	}
	return &pages{tmpl: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "tmpl/*.tmpl"))}
}

// stars renders a 0-5 rating as filled and empty stars.
func stars(score float64) string {
	n := int(score + 0.5)
	out := make([]rune, 5)
	for i := range out {
		if i < n {
			out[i] = '★'
		} else {
			out[i] = '☆'
		}
	}
	return string(out)
}

// toggleButton is the bookmark control for one item on a mounted view.
type toggleButton struct {
	Item   deals.Bookmarkable
	ViewID string
	Return string
}

func newToggleButton(item deals.Bookmarkable, viewID, ret string) toggleButton {
	return toggleButton{Item: item, ViewID: viewID, Return: ret}
}

// Action is the form target for this item's toggle.
func (b toggleButton) Action() string {
	if b.Item.EntityType() == deals.TypeDeal {
		return fmt.Sprintf("/deals/%d/favorite", b.Item.EntityID())
	}
	return fmt.Sprintf("/restaurants/%d/bookmark", b.Item.EntityID())
}

// Label describes what pressing the button does.
func (b toggleButton) Label() string {
	switch {
	case b.Item.EntityType() == deals.TypeDeal && b.Item.Bookmarked():
		return "Remove from favorites"
	case b.Item.EntityType() == deals.TypeDeal:
		return "Add to favorites"
	case b.Item.Bookmarked():
		return "Remove bookmark"
	default:
		return "Bookmark"
	}
}

// page is the data every screen template receives.
type page struct {
	Title     string
	AppName   string
	Version   string
	Nav       string
	User      *deals.User
	Toasts    []Toast
	Favorites int
	Location  *Location
	ViewID    string
	Errors    map[string]string
	Form      url.Values
	Data      any
}

// render executes a screen template. Toasts are drained only once the
// page rendered successfully.
func (s *Server) render(w http.ResponseWriter, sess *Session, status int, name string, p *page) {
	p.AppName = s.appName
	p.Version = s.version
	if sess != nil {
		p.User = sess.User()
		p.Location = sess.Location()
		p.Favorites = sess.syncer.Set().Len()
		p.Toasts = sess.DrainToasts()
	}

	var buf bytes.Buffer
	if err := s.pages.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		s.logger.Error("Failed to render template", "template", name, "error", err)
		if sess != nil {
			for _, t := range p.Toasts {
				sess.toast(t.Kind, t.Message)
			}
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("Failed to write response", "template", name, "error", err)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, _ *http.Request, sess *Session) {
	s.render(w, sess, http.StatusNotFound, "not_found.tmpl", &page{Title: "Not found"})
}

// renderError shows a generic failure page for a backend error.
func (s *Server) renderError(w http.ResponseWriter, sess *Session, msg string) {
	s.render(w, sess, http.StatusBadGateway, "error.tmpl", &page{Title: "Something went wrong", Data: msg})
}

// back redirects to a local return path, or fallback.
func back(w http.ResponseWriter, r *http.Request, fallback string) {
	http.Redirect(w, r, safeNext(r.FormValue("return"), fallback), http.StatusSeeOther)
}

// safeNext accepts only same-site absolute paths.
func safeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
