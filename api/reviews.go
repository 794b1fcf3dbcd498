package api

import (
	"context"
	"dealspot-web/pkg/deals"
	"fmt"
	"net/http"
)

// RatingInput is the body of a rating create or update.
type RatingInput struct {
	Score   int     `json:"score"`
	Comment string  `json:"comment,omitempty"`
	TagIDs  []int64 `json:"tagIds,omitempty"`
}

// CreateRating rates a restaurant.
func (c *Client) CreateRating(ctx context.Context, token string, restaurantID int64, in RatingInput) (*deals.Rating, error) {
	var out deals.Rating
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/restaurants/%d/ratings", restaurantID), token, in, &out); err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}
	return &out, nil
}

// UpdateRating replaces the user's existing rating.
func (c *Client) UpdateRating(ctx context.Context, token string, ratingID int64, in RatingInput) (*deals.Rating, error) {
	var out deals.Rating
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/ratings/%d", ratingID), token, in, &out); err != nil {
		return nil, fmt.Errorf("update rating %d: %w", ratingID, err)
	}
	return &out, nil
}

// ReviewTags lists the tags users can attach to ratings.
func (c *Client) ReviewTags(ctx context.Context, token string) ([]deals.ReviewTag, error) {
	var out []deals.ReviewTag
	if err := c.get(ctx, "/api/review-tags", token, &out); err != nil {
		return nil, fmt.Errorf("list review tags: %w", err)
	}
	return out, nil
}

// CreateReviewTag adds a tag.
func (c *Client) CreateReviewTag(ctx context.Context, token, name string) (*deals.ReviewTag, error) {
	var out deals.ReviewTag
	body := map[string]string{"name": name}
	if err := c.send(ctx, http.MethodPost, "/api/review-tags", token, body, &out); err != nil {
		return nil, fmt.Errorf("create review tag: %w", err)
	}
	return &out, nil
}

// ReportComment flags a review comment for moderation.
func (c *Client) ReportComment(ctx context.Context, token string, commentID int64, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/reports", commentID), token, body, nil); err != nil {
		return fmt.Errorf("report comment %d: %w", commentID, err)
	}
	return nil
}

// HasReported reports whether the user already reported a comment.
func (c *Client) HasReported(ctx context.Context, token string, commentID int64) (bool, error) {
	var out struct {
		Reported bool `json:"reported"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/comments/%d/reports/mine", commentID), token, &out); err != nil {
		return false, fmt.Errorf("check report for comment %d: %w", commentID, err)
	}
	return out.Reported, nil
}
