package api

import (
	"context"
	"dealspot-web/pkg/deals"
	"fmt"
	"net/http"
	"net/url"
)

// Reports lists open comment reports.
func (c *Client) Reports(ctx context.Context, token string) ([]*deals.CommentReport, error) {
	var out []*deals.CommentReport
	if err := c.get(ctx, "/api/admin/reports", token, &out); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// DeleteComment removes a reported comment.
func (c *Client) DeleteComment(ctx context.Context, token string, commentID int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/comments/%d", commentID), token, nil, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

// DismissReport closes a report without touching the comment.
func (c *Client) DismissReport(ctx context.Context, token string, reportID int64) error {
	if err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/reports/%d", reportID), token, nil, nil); err != nil {
		return fmt.Errorf("dismiss report %d: %w", reportID, err)
	}
	return nil
}

// Bans lists suspended users.
func (c *Client) Bans(ctx context.Context, token string) ([]*deals.Ban, error) {
	var out []*deals.Ban
	if err := c.get(ctx, "/api/admin/bans", token, &out); err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return out, nil
}

// BanUser suspends a user.
func (c *Client) BanUser(ctx context.Context, token, userID, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.send(ctx, http.MethodPost, "/api/admin/users/"+url.PathEscape(userID)+"/ban", token, body, nil); err != nil {
		return fmt.Errorf("ban user %s: %w", userID, err)
	}
	return nil
}

// UnbanUser lifts a suspension.
func (c *Client) UnbanUser(ctx context.Context, token, userID string) error {
	if err := c.send(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(userID)+"/ban", token, nil, nil); err != nil {
		return fmt.Errorf("unban user %s: %w", userID, err)
	}
	return nil
}

// SubmitDispute files an appeal against the caller's own suspension.
func (c *Client) SubmitDispute(ctx context.Context, token, message string) (*deals.Dispute, error) {
	var out deals.Dispute
	body := map[string]string{"message": message}
	if err := c.send(ctx, http.MethodPost, "/api/disputes", token, body, &out); err != nil {
		return nil, fmt.Errorf("submit dispute: %w", err)
	}
	return &out, nil
}
