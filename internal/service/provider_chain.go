package service

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
)

var errNoProviders = errors.New("no authentication providers configured")

// ProviderChain tries authenticators in order. Only connectivity failures
// fall through to the next one; any other outcome is final.
type ProviderChain struct {
	providers []ports.Authenticator
	logger    *slog.Logger
}

// ChainResult reports which provider answered.
type ChainResult struct {
	domainauth.AuthResult
	Provider string
	// FellBack is true when an earlier provider was unreachable.
	FellBack bool
}

// NewProviderChain builds a chain, skipping nil providers.
func NewProviderChain(logger *slog.Logger, providers ...ports.Authenticator) *ProviderChain {
	if logger == nil {
		logger = slog.Default()
	}
	list := make([]ports.Authenticator, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	return &ProviderChain{providers: list, logger: logger}
}

// Names lists provider names in order.
func (c *ProviderChain) Names() []string {
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Login authenticates against the first reachable provider.
func (c *ProviderChain) Login(ctx context.Context, identifier, password string) (ChainResult, error) {
	return c.run(ctx, "login", func(p ports.Authenticator) (domainauth.AuthResult, error) {
		return p.Login(ctx, identifier, password)
	})
}

// Signup registers against the first reachable provider.
func (c *ProviderChain) Signup(ctx context.Context, in domainauth.SignupInput) (ChainResult, error) {
	return c.run(ctx, "signup", func(p ports.Authenticator) (domainauth.AuthResult, error) {
		return p.Signup(ctx, in)
	})
}

func (c *ProviderChain) run(
	ctx context.Context,
	op string,
	call func(ports.Authenticator) (domainauth.AuthResult, error),
) (ChainResult, error) {
	if len(c.providers) == 0 {
		return ChainResult{}, apperrors.Wrap(errNoProviders, apperrors.ErrCodeUnavailable, "Backend service unavailable")
	}

	var lastErr error
	for i, p := range c.providers {
		res, err := call(p)
		if err == nil {
			return ChainResult{AuthResult: res, Provider: p.Name(), FellBack: i > 0}, nil
		}
		if !apperrors.IsUnavailable(err) {
			return ChainResult{Provider: p.Name(), FellBack: i > 0}, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i < len(c.providers)-1 {
			c.logger.WarnContext(ctx, "auth provider unreachable, trying next",
				"op", op,
				"provider", p.Name(),
				"next", c.providers[i+1].Name(),
				"error", err)
		}
	}
	return ChainResult{}, lastErr
}
