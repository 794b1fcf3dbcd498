package auth

import (
	"context"
	"fmt"
	"strings"
)

// DevVerifier accepts unsigned "dev:<role>:<subject>" tokens.
// It must only be enabled for local development.
type DevVerifier struct{}

// Verify parses a dev token. A subject ending in "+banned" marks the user banned.
func (DevVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != "dev" || parts[2] == "" {
		return nil, fmt.Errorf("%w: not a dev token", ErrInvalidToken)
	}
	subject, banned := strings.CutSuffix(parts[2], "+banned")
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &Claims{
		Subject: subject,
		Email:   subject + "@dev.local",
		Name:    subject,
		Role:    parseRole(parts[1]),
		Banned:  banned,
	}, nil
}
