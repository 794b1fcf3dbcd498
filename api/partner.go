package api

import (
	"context"
	"dealspot-web/pkg/deals"
	"fmt"
	"net/http"
	"time"
)

// RestaurantInput is the editable part of a restaurant.
type RestaurantInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// MenuSectionInput is the editable part of a menu section.
type MenuSectionInput struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// MenuItemInput is the editable part of a menu item.
type MenuItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"priceCents"`
}

// DealInput is the editable part of a deal.
type DealInput struct {
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	PriceCents         int64     `json:"priceCents"`
	OriginalPriceCents int64     `json:"originalPriceCents,omitempty"`
	StartsAt           time.Time `json:"startsAt"`
	EndsAt             time.Time `json:"endsAt"`
}

// MyRestaurants lists the restaurants owned by the partner.
func (c *Client) MyRestaurants(ctx context.Context, token string) ([]*deals.Restaurant, error) {
	var out []*deals.Restaurant
	if err := c.get(ctx, "/api/partner/restaurants", token, &out); err != nil {
		return nil, fmt.Errorf("list partner restaurants: %w", err)
	}
	return out, nil
}

// CreateRestaurant adds a restaurant owned by the partner.
func (c *Client) CreateRestaurant(ctx context.Context, token string, in RestaurantInput) (*deals.Restaurant, error) {
	var out deals.Restaurant
	if err := c.send(ctx, http.MethodPost, "/api/partner/restaurants", token, in, &out); err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	return &out, nil
}

// UpdateRestaurant replaces a restaurant's editable fields.
func (c *Client) UpdateRestaurant(ctx context.Context, token string, id int64, in RestaurantInput) (*deals.Restaurant, error) {
	var out deals.Restaurant
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/partner/restaurants/%d", id), token, in, &out); err != nil {
		return nil, fmt.Errorf("update restaurant %d: %w", id, err)
	}
	return &out, nil
}

// DeleteRestaurant removes a restaurant with its menu and deals.
func (c *Client) DeleteRestaurant(ctx context.Context, token string, id int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/partner/restaurants/%d", id), token, nil, nil); err != nil {
		return fmt.Errorf("delete restaurant %d: %w", id, err)
	}
	return nil
}

// CreateMenuSection adds a section to a restaurant's menu.
func (c *Client) CreateMenuSection(ctx context.Context, token string, restaurantID int64, in MenuSectionInput) (*deals.MenuSection, error) {
	var out deals.MenuSection
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/partner/restaurants/%d/menu-sections", restaurantID), token, in, &out); err != nil {
		return nil, fmt.Errorf("create menu section: %w", err)
	}
	return &out, nil
}

// UpdateMenuSection renames or reorders a section.
func (c *Client) UpdateMenuSection(ctx context.Context, token string, id int64, in MenuSectionInput) (*deals.MenuSection, error) {
	var out deals.MenuSection
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/partner/menu-sections/%d", id), token, in, &out); err != nil {
		return nil, fmt.Errorf("update menu section %d: %w", id, err)
	}
	return &out, nil
}

// DeleteMenuSection removes a section and its items.
func (c *Client) DeleteMenuSection(ctx context.Context, token string, id int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/partner/menu-sections/%d", id), token, nil, nil); err != nil {
		return fmt.Errorf("delete menu section %d: %w", id, err)
	}
	return nil
}

// CreateMenuItem adds an item to a section.
func (c *Client) CreateMenuItem(ctx context.Context, token string, sectionID int64, in MenuItemInput) (*deals.MenuItem, error) {
	var out deals.MenuItem
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/partner/menu-sections/%d/items", sectionID), token, in, &out); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return &out, nil
}

// UpdateMenuItem replaces an item's fields.
func (c *Client) UpdateMenuItem(ctx context.Context, token string, id int64, in MenuItemInput) (*deals.MenuItem, error) {
	var out deals.MenuItem
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/partner/menu-items/%d", id), token, in, &out); err != nil {
		return nil, fmt.Errorf("update menu item %d: %w", id, err)
	}
	return &out, nil
}

// DeleteMenuItem removes an item.
func (c *Client) DeleteMenuItem(ctx context.Context, token string, id int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/partner/menu-items/%d", id), token, nil, nil); err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}
	return nil
}

// CreateDeal adds a deal to a restaurant.
func (c *Client) CreateDeal(ctx context.Context, token string, restaurantID int64, in DealInput) (*deals.Deal, error) {
	var out deals.Deal
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/partner/restaurants/%d/deals", restaurantID), token, in, &out); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return &out, nil
}

// UpdateDeal replaces a deal's fields.
func (c *Client) UpdateDeal(ctx context.Context, token string, id int64, in DealInput) (*deals.Deal, error) {
	var out deals.Deal
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/partner/deals/%d", id), token, in, &out); err != nil {
		return nil, fmt.Errorf("update deal %d: %w", id, err)
	}
	return &out, nil
}

// DeleteDeal removes a deal.
func (c *Client) DeleteDeal(ctx context.Context, token string, id int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/partner/deals/%d", id), token, nil, nil); err != nil {
		return fmt.Errorf("delete deal %d: %w", id, err)
	}
	return nil
}
