package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRestaurantsSendsQueryAndToken(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":7,"name":"Noodle Bar","isBookmarked":true}]`)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL+"/", testLogger())
	got, err := c.Restaurants(context.Background(), "tok", ListQuery{Search: "noodle", Lat: 1.5, Lng: 2.25, HasLocation: true})
	if err != nil {
		t.Fatalf("Restaurants() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if want := "lat=1.500000&lng=2.250000&q=noodle"; gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
	if len(got) != 1 || got[0].ID != 7 || !got[0].IsBookmarked {
		t.Errorf("Restaurants() = %+v, want one bookmarked restaurant 7", got)
	}
}

func TestGetRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"id":3,"title":"Half-price ramen","isFavorited":true}`)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	d, err := c.Deal(context.Background(), "", 3)
	if err != nil {
		t.Fatalf("Deal() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if !d.IsBookmarked {
		t.Error("Deal().IsBookmarked = false, want true from isFavorited")
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"restaurant not found"}`)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	_, err := c.Restaurant(context.Background(), "", 99)
	if !IsNotFound(err) {
		t.Fatalf("Restaurant() error = %v, want not found", err)
	}
	if got := Message(err); got != "restaurant not found" {
		t.Errorf("Message() = %q, want %q", got, "restaurant not found")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		method = r.Method
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	err := c.SetDealFavorite(context.Background(), "tok", 5, false)
	if err == nil {
		t.Fatal("SetDealFavorite() error = nil, want error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", method)
	}
}

func TestBookmarkMethods(t *testing.T) {
	tests := []struct {
		name       string
		on         bool
		restaurant bool
		wantMethod string
		wantPath   string
	}{
		{"bookmark restaurant", true, true, http.MethodPost, "/api/restaurants/4/bookmark"},
		{"unbookmark restaurant", false, true, http.MethodDelete, "/api/restaurants/4/bookmark"},
		{"favorite deal", true, false, http.MethodPost, "/api/deals/4/favorite"},
		{"unfavorite deal", false, false, http.MethodDelete, "/api/deals/4/favorite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			c := New(srv.Client(), srv.URL, testLogger())
			var err error
			if tt.restaurant {
				err = c.SetRestaurantBookmark(context.Background(), "tok", 4, tt.on)
			} else {
				err = c.SetDealFavorite(context.Background(), "tok", 4, tt.on)
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", method, path, tt.wantMethod, tt.wantPath)
			}
		})
	}
}

func TestFavoritesMarksEntriesBookmarked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"restaurants":[{"id":1}],"deals":[{"id":2}]}`)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	fav, err := c.Favorites(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Favorites() error = %v", err)
	}
	if len(fav.Restaurants) != 1 || !fav.Restaurants[0].IsBookmarked {
		t.Errorf("Favorites().Restaurants = %+v, want one bookmarked", fav.Restaurants)
	}
	if len(fav.Deals) != 1 || !fav.Deals[0].IsBookmarked {
		t.Errorf("Favorites().Deals = %+v, want one favorited", fav.Deals)
	}
}

func TestCreateRatingBody(t *testing.T) {
	var got RatingInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":11,"restaurantId":4,"score":5}`)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	in := RatingInput{Score: 5, Comment: "great", TagIDs: []int64{1, 2}}
	r, err := c.CreateRating(context.Background(), "tok", 4, in)
	if err != nil {
		t.Fatalf("CreateRating() error = %v", err)
	}
	if r.ID != 11 {
		t.Errorf("CreateRating().ID = %d, want 11", r.ID)
	}
	if got.Score != 5 || got.Comment != "great" || len(got.TagIDs) != 2 {
		t.Errorf("body = %+v, want %+v", got, in)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", io.ErrUnexpectedEOF, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &HTTPError{StatusCode: http.StatusInternalServerError}, true},
		{"bad request", &HTTPError{StatusCode: http.StatusBadRequest}, false},
		{"forbidden", &HTTPError{StatusCode: http.StatusForbidden}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transient(tt.err); got != tt.want {
				t.Errorf("transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func ignore[T any](_ T, err error) error { return err }

func TestManagementEndpoints(t *testing.T) {
	ctx := context.Background()
	restaurant := RestaurantInput{Name: "A"}
	section := MenuSectionInput{Name: "Mains"}
	item := MenuItemInput{Name: "Ramen"}
	deal := DealInput{Title: "Lunch", PriceCents: 950}
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
	}{
		{"my restaurants", func(c *Client) error { return ignore(c.MyRestaurants(ctx, "tok")) }, http.MethodGet, "/api/partner/restaurants"},
		{"create restaurant", func(c *Client) error { return ignore(c.CreateRestaurant(ctx, "tok", restaurant)) }, http.MethodPost, "/api/partner/restaurants"},
		{"update restaurant", func(c *Client) error { return ignore(c.UpdateRestaurant(ctx, "tok", 4, restaurant)) }, http.MethodPut, "/api/partner/restaurants/4"},
		{"delete restaurant", func(c *Client) error { return c.DeleteRestaurant(ctx, "tok", 4) }, http.MethodDelete, "/api/partner/restaurants/4"},
		{"create section", func(c *Client) error { return ignore(c.CreateMenuSection(ctx, "tok", 4, section)) }, http.MethodPost, "/api/partner/restaurants/4/menu-sections"},
		{"update section", func(c *Client) error { return ignore(c.UpdateMenuSection(ctx, "tok", 5, section)) }, http.MethodPut, "/api/partner/menu-sections/5"},
		{"delete section", func(c *Client) error { return c.DeleteMenuSection(ctx, "tok", 5) }, http.MethodDelete, "/api/partner/menu-sections/5"},
		{"create item", func(c *Client) error { return ignore(c.CreateMenuItem(ctx, "tok", 5, item)) }, http.MethodPost, "/api/partner/menu-sections/5/items"},
		{"update item", func(c *Client) error { return ignore(c.UpdateMenuItem(ctx, "tok", 9, item)) }, http.MethodPut, "/api/partner/menu-items/9"},
		{"delete item", func(c *Client) error { return c.DeleteMenuItem(ctx, "tok", 9) }, http.MethodDelete, "/api/partner/menu-items/9"},
		{"create deal", func(c *Client) error { return ignore(c.CreateDeal(ctx, "tok", 4, deal)) }, http.MethodPost, "/api/partner/restaurants/4/deals"},
		{"update deal", func(c *Client) error { return ignore(c.UpdateDeal(ctx, "tok", 3, deal)) }, http.MethodPut, "/api/partner/deals/3"},
		{"delete deal", func(c *Client) error { return c.DeleteDeal(ctx, "tok", 3) }, http.MethodDelete, "/api/partner/deals/3"},
		{"reports", func(c *Client) error { return ignore(c.Reports(ctx, "tok")) }, http.MethodGet, "/api/admin/reports"},
		{"delete comment", func(c *Client) error { return c.DeleteComment(ctx, "tok", 8) }, http.MethodDelete, "/api/admin/comments/8"},
		{"dismiss report", func(c *Client) error { return c.DismissReport(ctx, "tok", 6) }, http.MethodDelete, "/api/admin/reports/6"},
		{"bans", func(c *Client) error { return ignore(c.Bans(ctx, "tok")) }, http.MethodGet, "/api/admin/bans"},
		{"ban user", func(c *Client) error { return c.BanUser(ctx, "tok", "carl", "spam") }, http.MethodPost, "/api/admin/users/carl/ban"},
		{"unban user", func(c *Client) error { return c.UnbanUser(ctx, "tok", "carl") }, http.MethodDelete, "/api/admin/users/carl/ban"},
		{"submit dispute", func(c *Client) error { return ignore(c.SubmitDispute(ctx, "tok", "please review")) }, http.MethodPost, "/api/disputes"},
		{"report comment", func(c *Client) error { return c.ReportComment(ctx, "tok", 8, "spam") }, http.MethodPost, "/api/comments/8/reports"},
		{"has reported", func(c *Client) error { return ignore(c.HasReported(ctx, "tok", 8)) }, http.MethodGet, "/api/comments/8/reports/mine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path, auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path, auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
				w.Header().Set("Content-Type", "application/json")
				if r.Method == http.MethodGet && r.URL.Path != "/api/comments/8/reports/mine" {
					_, _ = io.WriteString(w, `[]`)
					return
				}
				_, _ = io.WriteString(w, `{"id":1}`)
			}))
			defer srv.Close()

			if err := tt.call(New(srv.Client(), srv.URL, testLogger())); err != nil {
				t.Fatalf("error = %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", method, path, tt.wantMethod, tt.wantPath)
			}
			if auth != "Bearer tok" {
				t.Errorf("Authorization = %q, want %q", auth, "Bearer tok")
			}
		})
	}
}

func TestBanUserBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.Client(), srv.URL, testLogger()).BanUser(context.Background(), "tok", "carl", "abusive"); err != nil {
		t.Fatalf("BanUser() error = %v", err)
	}
	if got["reason"] != "abusive" {
		t.Errorf("body = %v, want reason abusive", got)
	}
}
