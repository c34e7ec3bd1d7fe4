package session

import (
	"context"
	"fmt"
	"strings"

	redisclient "github.com/landmarklens/landmark-api/pkg/redis"
)

type sessionStore interface {
	HasAccessSession(ctx context.Context, accessID string) (bool, error)
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Checker looks up access sessions written by the identity service. A
// revoked or expired session is simply absent.
type Checker struct {
	store sessionStore
}

// NewChecker constructs a session checker backed by Redis.
func NewChecker(client *redisclient.Client) (*Checker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Checker{store: client}, nil
}

// HasSession reports whether the access ID still has an active session.
func (c *Checker) HasSession(ctx context.Context, accessID string) (bool, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return false, fmt.Errorf("access id is required")
	}
	return c.store.HasAccessSession(ctx, accessID)
}
