// Package auth verifies identity-provider bearer tokens.
package auth

import (
	"context"
	"dealspot-web/pkg/deals"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidToken is returned for missing, malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified identity carried by a bearer token.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Role    deals.Role
	Banned  bool
}

// User converts the claims to the domain user.
func (c *Claims) User() deals.User {
	return deals.User{
		ID:     c.Subject,
		Email:  c.Email,
		Name:   c.Name,
		Role:   c.Role,
		Banned: c.Banned,
	}
}

// Verifier turns a bearer token into claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseRole(s string) deals.Role {
	switch deals.Role(strings.ToLower(s)) {
	case deals.RolePartner:
		return deals.RolePartner
	case deals.RoleAdmin:
		return deals.RoleAdmin
	default:
		return deals.RoleCustomer
	}
}
