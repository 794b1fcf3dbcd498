package api

import (
	"context"
	"dealspot-web/pkg/deals"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListQuery filters restaurant and deal listings.
type ListQuery struct {
	Search string
	Lat    float64
	Lng    float64
	// HasLocation distinguishes (0,0) from "no location".
	HasLocation bool
}

func (q ListQuery) encode() string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.HasLocation {
		v.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
		v.Set("lng", strconv.FormatFloat(q.Lng, 'f', 6, 64))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Restaurants lists restaurants, ranked by the backend.
func (c *Client) Restaurants(ctx context.Context, token string, q ListQuery) ([]*deals.Restaurant, error) {
	var out []*deals.Restaurant
	if err := c.get(ctx, "/api/restaurants"+q.encode(), token, &out); err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return out, nil
}

// Restaurant fetches one restaurant with its menu, deals and ratings.
func (c *Client) Restaurant(ctx context.Context, token string, id int64) (*deals.Restaurant, error) {
	var out deals.Restaurant
	if err := c.get(ctx, fmt.Sprintf("/api/restaurants/%d", id), token, &out); err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, err)
	}
	return &out, nil
}

// Deals lists currently visible deals.
func (c *Client) Deals(ctx context.Context, token string, q ListQuery) ([]*deals.Deal, error) {
	var out []*deals.Deal
	if err := c.get(ctx, "/api/deals"+q.encode(), token, &out); err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return out, nil
}

// Deal fetches one deal.
func (c *Client) Deal(ctx context.Context, token string, id int64) (*deals.Deal, error) {
	var out deals.Deal
	if err := c.get(ctx, fmt.Sprintf("/api/deals/%d", id), token, &out); err != nil {
		return nil, fmt.Errorf("get deal %d: %w", id, err)
	}
	return &out, nil
}

// Favorites lists the user's bookmarked restaurants and favorited deals.
func (c *Client) Favorites(ctx context.Context, token string) (*deals.Favorites, error) {
	var out deals.Favorites
	if err := c.get(ctx, "/api/favorites", token, &out); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	for _, r := range out.Restaurants {
		r.IsBookmarked = true
	}
	for _, d := range out.Deals {
		d.IsBookmarked = true
	}
	return &out, nil
}

// SetRestaurantBookmark adds or removes a restaurant bookmark.
func (c *Client) SetRestaurantBookmark(ctx context.Context, token string, id int64, on bool) error {
	method := http.MethodPost
	if !on {
		method = http.MethodDelete
	}
	if err := c.send(ctx, method, fmt.Sprintf("/api/restaurants/%d/bookmark", id), token, nil, nil); err != nil {
		return fmt.Errorf("set restaurant %d bookmark=%t: %w", id, on, err)
	}
	return nil
}

// SetDealFavorite adds or removes a deal favorite.
func (c *Client) SetDealFavorite(ctx context.Context, token string, id int64, on bool) error {
	method := http.MethodPost
	if !on {
		method = http.MethodDelete
	}
	if err := c.send(ctx, method, fmt.Sprintf("/api/deals/%d/favorite", id), token, nil, nil); err != nil {
		return fmt.Errorf("set deal %d favorite=%t: %w", id, on, err)
	}
	return nil
}
