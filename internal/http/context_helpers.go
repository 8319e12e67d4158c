package httpx

import (
	"context"

	"github.com/Dev-16-apk/breedify/internal/service"
)

// managerKey is an unexported context key type to avoid collisions across packages.
type managerKey struct{}

// WithSessionManager returns a child context carrying m.
func WithSessionManager(ctx context.Context, m *service.SessionManager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// LookupSessionManager returns the manager from ctx and whether one was present.
func LookupSessionManager(ctx context.Context) (*service.SessionManager, bool) {
	m, ok := ctx.Value(managerKey{}).(*service.SessionManager)
	return m, ok && m != nil
}

// SessionManagerFromContext returns the manager injected by InjectSessionManager.
// It panics when called outside a request that went through that middleware.
func SessionManagerFromContext(ctx context.Context) *service.SessionManager {
	m, ok := LookupSessionManager(ctx)
	if !ok {
		panic("httpx: SessionManagerFromContext called without an injected session manager")
	}
	return m
}
