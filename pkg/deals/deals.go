// Package deals contains the core domain types for the DealSpot web client.
package deals

import (
	"fmt"
	"time"
)

// EntityType identifies which kind of entity a bookmark refers to.
type EntityType string

const (
	TypeRestaurant EntityType = "restaurant"
	TypeDeal       EntityType = "deal"
)

// ParseEntityType validates a raw type name.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case TypeRestaurant, TypeDeal:
		return EntityType(s), nil
	default:
		return "", fmt.Errorf("unknown entity type %q", s)
	}
}

// Bookmarkable is a restaurant or deal as held by a single screen.
type Bookmarkable interface {
	EntityID() int64
	EntityType() EntityType
	Bookmarked() bool
	SetBookmarked(bool)
	// Clone returns a copy whose bookmark flag can change independently.
	Clone() Bookmarkable
}

// BookmarkChange is broadcast when a toggle succeeds.
type BookmarkChange struct {
	ID           int64      `json:"id"`
	Type         EntityType `json:"type"`
	IsBookmarked bool       `json:"isBookmarked"`
}

// Role is the user's role as asserted by the identity provider.
type Role string

const (
	RoleCustomer Role = "customer"
	RolePartner  Role = "partner"
	RoleAdmin    Role = "admin"
)

// User is the signed-in account.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Banned bool   `json:"banned"`
}

// IsPartner reports whether the user may manage restaurants.
func (u *User) IsPartner() bool {
	return u != nil && (u.Role == RolePartner || u.Role == RoleAdmin)
}

// IsAdmin reports whether the user may use the admin console.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Restaurant as returned by the backend.
type Restaurant struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Address       string         `json:"address"`
	Phone         string         `json:"phone,omitempty"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	Latitude      float64        `json:"latitude,omitempty"`
	Longitude     float64        `json:"longitude,omitempty"`
	AverageRating float64        `json:"averageRating,omitempty"`
	RatingCount   int            `json:"ratingCount,omitempty"`
	OwnerID       string         `json:"ownerId,omitempty"`
	IsBookmarked  bool           `json:"isBookmarked"`
	MenuSections  []*MenuSection `json:"menuSections,omitempty"`
	Deals         []*Deal        `json:"deals,omitempty"`
	Ratings       []*Rating      `json:"ratings,omitempty"`

	// DistanceKm is computed client side from the session location; zero when unknown.
	DistanceKm float64 `json:"-"`
}

// EntityID implements Bookmarkable.
func (r *Restaurant) EntityID() int64 { return r.ID }

// EntityType implements Bookmarkable.
func (r *Restaurant) EntityType() EntityType { return TypeRestaurant }

// Bookmarked implements Bookmarkable.
func (r *Restaurant) Bookmarked() bool { return r.IsBookmarked }

// SetBookmarked implements Bookmarkable.
func (r *Restaurant) SetBookmarked(on bool) { r.IsBookmarked = on }

// Clone implements Bookmarkable. Nested menus, deals and ratings are shared.
func (r *Restaurant) Clone() Bookmarkable {
	c := *r
	return &c
}

// HasLocation reports whether the restaurant has coordinates.
func (r *Restaurant) HasLocation() bool { return r.Latitude != 0 || r.Longitude != 0 }

// Deal as returned by the backend.
type Deal struct {
	ID                 int64     `json:"id"`
	RestaurantID       int64     `json:"restaurantId"`
	RestaurantName     string    `json:"restaurantName,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	PriceCents         int64     `json:"priceCents"`
	OriginalPriceCents int64     `json:"originalPriceCents,omitempty"`
	StartsAt           time.Time `json:"startsAt"`
	EndsAt             time.Time `json:"endsAt"`
	Active             bool      `json:"active"`
	IsBookmarked       bool      `json:"isFavorited"`
}

// EntityID implements Bookmarkable.
func (d *Deal) EntityID() int64 { return d.ID }

// EntityType implements Bookmarkable.
func (d *Deal) EntityType() EntityType { return TypeDeal }

// Bookmarked implements Bookmarkable.
func (d *Deal) Bookmarked() bool { return d.IsBookmarked }

// SetBookmarked implements Bookmarkable.
func (d *Deal) SetBookmarked(on bool) { d.IsBookmarked = on }

// Clone implements Bookmarkable.
func (d *Deal) Clone() Bookmarkable {
	c := *d
	return &c
}

// Savings returns the discount in cents, or zero when there is no original price.
func (d *Deal) Savings() int64 {
	if d.OriginalPriceCents <= d.PriceCents {
		return 0
	}
	return d.OriginalPriceCents - d.PriceCents
}

// MenuSection groups menu items of a restaurant.
type MenuSection struct {
	ID           int64       `json:"id"`
	RestaurantID int64       `json:"restaurantId"`
	Name         string      `json:"name"`
	Position     int         `json:"position"`
	Items        []*MenuItem `json:"items,omitempty"`
}

// MenuItem is a single dish.
type MenuItem struct {
	ID          int64  `json:"id"`
	SectionID   int64  `json:"sectionId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"priceCents"`
}

// Rating is a user's score and review of a restaurant.
type Rating struct {
	ID           int64       `json:"id"`
	RestaurantID int64       `json:"restaurantId"`
	UserID       string      `json:"userId"`
	UserName     string      `json:"userName,omitempty"`
	Score        int         `json:"score"`
	Comment      string      `json:"comment,omitempty"`
	CommentID    int64       `json:"commentId,omitempty"`
	Tags         []ReviewTag `json:"tags,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ReviewTag is a short label attached to ratings ("Friendly staff").
type ReviewTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CommentReport is a moderation report against a review comment.
type CommentReport struct {
	ID         int64     `json:"id"`
	CommentID  int64     `json:"commentId"`
	Comment    string    `json:"comment"`
	AuthorID   string    `json:"authorId"`
	ReporterID string    `json:"reporterId"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Ban records a suspended account.
type Ban struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email,omitempty"`
	Reason   string    `json:"reason"`
	BannedAt time.Time `json:"bannedAt"`
}

// Dispute is a suspended user's appeal.
type Dispute struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Favorites is the backend's view of a user's bookmarks.
type Favorites struct {
	Restaurants []*Restaurant `json:"restaurants"`
	Deals       []*Deal       `json:"deals"`
}
