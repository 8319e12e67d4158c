package config

import (
	"strings"
	"time"
)

const defaultBackendURL = "http://localhost:8000/api"

// BackendConfig controls the remote auth API client.
type BackendConfig struct {
	// APIURL is the base URL every auth path is appended to.
	APIURL  string        `env:"API_URL" envDefault:"http://localhost:8000/api"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// LogoutTimeout bounds the best-effort logout call.
	LogoutTimeout time.Duration `env:"LOGOUT_TIMEOUT" envDefault:"5s"`

	// BreakerFailures is the number of consecutive connectivity failures that
	// open the circuit. Zero disables the breaker.
	BreakerFailures    uint32        `env:"BREAKER_FAILURES"     envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	// Retry policy for the current-user lookup.
	RetryAttempts         int           `env:"RETRY_ATTEMPTS"          envDefault:"3"`
	RetryInitialBackoff   time.Duration `env:"RETRY_INITIAL_BACKOFF"   envDefault:"1s"`
	RetryRateLimitBackoff time.Duration `env:"RETRY_RATE_LIMIT_BACKOFF" envDefault:"2s"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.APIURL = strings.TrimRight(strings.TrimSpace(b.APIURL), "/")
	if b.APIURL == "" {
		b.APIURL = defaultBackendURL
	}
	if b.Timeout <= 0 {
		b.Timeout = 30 * time.Second
	}
	if b.LogoutTimeout <= 0 {
		b.LogoutTimeout = 5 * time.Second
	}
	if b.BreakerOpenTimeout <= 0 {
		b.BreakerOpenTimeout = 30 * time.Second
	}
	if b.RetryAttempts < 1 {
		b.RetryAttempts = 1
	}
	if b.RetryInitialBackoff < 0 {
		b.RetryInitialBackoff = 0
	}
	if b.RetryRateLimitBackoff < b.RetryInitialBackoff {
		b.RetryRateLimitBackoff = b.RetryInitialBackoff
	}
}
