// Package backend implements the remote auth API client used by the session manager.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/Dev-16-apk/breedify/internal/retry"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBaseURL is used when Options.BaseURL is empty.
	DefaultBaseURL = "http://localhost:8000/api"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Ensure compile-time conformance to ports.
var _ ports.AuthAPI = (*Client)(nil)

// BreakerOptions configures the circuit breaker guarding the backend.
// Only connectivity failures count towards tripping it.
type BreakerOptions struct {
	// ConsecutiveFailures trips the breaker; zero disables it.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerOptions
	// Retry applies to CurrentUser only; zero MaxAttempts means a single attempt.
	Retry  retry.Policy
	Logger *slog.Logger
	// OnBreakerChange is notified on circuit state transitions.
	OnBreakerChange func(from, to string)
}

// Client talks to the backend's /auth endpoints.
type Client struct {
	base   *url.URL
	hc     *http.Client
	cb     *gobreaker.CircuitBreaker
	retry  retry.Policy
	logger *slog.Logger
}

// NewClient builds a Client. The base URL must be absolute.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", raw)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		jar, jerr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jerr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jerr)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "backend")

	c := &Client{base: base, hc: hc, retry: opts.Retry, logger: logger}
	if opts.Breaker.ConsecutiveFailures > 0 {
		c.cb = newBreaker(opts.Breaker, logger, opts.OnBreakerChange)
	}
	return c, nil
}

func newBreaker(opts BreakerOptions, logger *slog.Logger, notify func(from, to string)) *gobreaker.CircuitBreaker {
	threshold := opts.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsUnavailable(err)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("backend circuit breaker state changed", "from", from.String(), "to", to.String())
			if notify != nil {
				notify(from.String(), to.String())
			}
		},
	})
}

// Name identifies the client in the provider chain.
func (c *Client) Name() string { return "remote" }

// BreakerState reports the circuit state ("closed", "half-open", "open"), or
// "disabled" when no breaker is configured.
func (c *Client) BreakerState() string {
	if c.cb == nil {
		return "disabled"
	}
	return c.cb.State().String()
}

type loginRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	Password     string `json:"password"`
}

type signupRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Role     domainauth.Role `json:"role"`
}

// userEnvelope accepts both a bare user object and {"user": {...}}.
type userEnvelope struct {
	domainauth.User
	Wrapped *domainauth.User `json:"user"`
}

func (e userEnvelope) user() domainauth.User {
	if e.Wrapped != nil {
		return *e.Wrapped
	}
	return e.User
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, emailOrPhone, password string) (domainauth.AuthResult, error) {
	var out domainauth.AuthResult
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{EmailOrPhone: emailOrPhone, Password: password},
		op:     opCredentials,
	}, &out)
	if err != nil {
		return domainauth.AuthResult{}, err
	}
	if out.Token == "" || out.User.ID == "" {
		return domainauth.AuthResult{}, apperrors.Internal("backend returned an incomplete login response")
	}
	return out, nil
}

// Signup posts a registration to /auth/signup.
func (c *Client) Signup(ctx context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error) {
	role := in.Role
	if role == "" {
		role = domainauth.RoleFieldOfficer
	}
	var out domainauth.AuthResult
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/signup",
		body:   signupRequest{Email: in.Email, Password: in.Password, Name: in.Name, Role: role},
		op:     opCredentials,
	}, &out)
	if err != nil {
		return domainauth.AuthResult{}, err
	}
	if out.Token == "" || out.User.ID == "" {
		return domainauth.AuthResult{}, apperrors.Internal("backend returned an incomplete signup response")
	}
	return out, nil
}

// Logout invalidates token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		token:  token,
		op:     opSession,
	}, nil)
}

// CurrentUser resolves the owner of token via /auth/me, retrying server errors.
func (c *Client) CurrentUser(ctx context.Context, token string) (domainauth.User, error) {
	policy := c.retry
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
			c.logger.Info("retrying current user lookup", "attempt", attempt, "backoff", backoff, "error", err)
		}
	}
	env, err := retry.Do(ctx, policy, classifyRetry, func(ctx context.Context) (userEnvelope, error) {
		var env userEnvelope
		err := c.call(ctx, request{
			method: http.MethodGet,
			path:   "/auth/me",
			token:  token,
			op:     opSession,
		}, &env)
		return env, err
	})
	if err != nil {
		return domainauth.User{}, unwrapRetry(err)
	}
	u := env.user()
	if u.ID == "" {
		return domainauth.User{}, apperrors.Internal("backend returned an empty user")
	}
	return u, nil
}

// classifyRetry retries 5xx and 429; everything else is final.
func classifyRetry(err error) retry.Action {
	if !apperrors.IsRemote(err) {
		return retry.Stop
	}
	switch status := apperrors.GetStatus(err); {
	case status == http.StatusTooManyRequests:
		return retry.After
	case status >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

// unwrapRetry strips retry bookkeeping so callers see the backend's AppError.
func unwrapRetry(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return err
}

type opKind int

const (
	opCredentials opKind = iota
	opSession
)

type request struct {
	method string
	path   string
	token  string
	body   any
	op     opKind
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	if c.cb == nil {
		return c.roundTrip(ctx, r, out)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, r, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, msgUnavailable)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.base.String()+r.path, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend returned error status",
			"path", r.path,
			"status", resp.StatusCode,
			"request_id", req.Header.Get("X-Request-ID"),
		)
		return statusError(resp.StatusCode, r.op, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode backend response")
	}
	return nil
}
