package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
)

// Authenticator exchanges credentials for an authenticated user and token.
// A SessionManager consults its authenticators in order and falls through on
// unavailability only.
type Authenticator interface {
	// Name identifies the provider in logs and metrics (e.g. "remote", "demo").
	Name() string

	// Login authenticates with an email address or phone number and a password.
	Login(ctx context.Context, emailOrPhone, password string) (domainauth.AuthResult, error)

	// Signup registers a new account and returns it already authenticated.
	Signup(ctx context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error)
}

// AuthAPI is the remote backend's session surface.
type AuthAPI interface {
	Authenticator

	// Logout invalidates token on the backend.
	Logout(ctx context.Context, token string) error

	// CurrentUser resolves the user a token belongs to.
	CurrentUser(ctx context.Context, token string) (domainauth.User, error)
}
