// Package service holds the session orchestration logic.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/observability/metrics"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// ErrManagerClosed is returned by operations on a closed SessionManager.
var ErrManagerClosed = errors.New("session manager closed")

const (
	msgBackendUnavailable = "Backend service unavailable"
	msgLoginFailed        = "Login failed"
	msgSignupFailed       = "Signup failed"

	defaultLogoutTimeout = 5 * time.Second
	defaultAuthTimeout   = 90 * time.Second
)

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	// API validates restored tokens and receives best-effort logouts. Optional.
	API ports.AuthAPI
	// Providers are tried in order for login and signup. Defaults to [API].
	Providers []ports.Authenticator
	Store     ports.KeyValueStore
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   metrics.Sink

	// ActivityKinds that reset the inactivity timer. Defaults to DefaultActivityKinds.
	ActivityKinds []domainauth.ActivityKind
	// DefaultTimeoutMinutes applies when no preference is persisted.
	DefaultTimeoutMinutes int
	// LogoutTimeout bounds the remote logout call.
	LogoutTimeout time.Duration
	// AuthTimeout bounds a coalesced login, which outlives any single caller.
	AuthTimeout time.Duration
}

// SessionManager owns the authenticated session, its persisted record and
// the inactivity timer. It is safe for concurrent use.
type SessionManager struct {
	api      ports.AuthAPI
	chain    *ProviderChain
	store    ports.KeyValueStore
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  metrics.Sink
	kinds    map[domainauth.ActivityKind]struct{}
	defaultM int
	logoutTO time.Duration
	authTO   time.Duration

	timer  *IdleTimer
	flight singleflight.Group
	bg     sync.WaitGroup

	mu        sync.Mutex
	user      *domainauth.User
	token     string
	inflight  int
	restoring bool
	errMsg    string
	timeoutM  int
	closed    bool

	subMu   sync.Mutex
	subs    map[int]chan domainauth.State
	nextSub int
}

// NewSessionManager constructs a manager in the loading state; call Restore
// once at startup to leave it.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Store == nil {
		return nil, errors.New("session manager: store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultTimeoutMinutes <= 0 {
		opts.DefaultTimeoutMinutes = domainauth.DefaultInactivityTimeoutMinutes
	}
	if opts.LogoutTimeout <= 0 {
		opts.LogoutTimeout = defaultLogoutTimeout
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTimeout
	}
	if len(opts.ActivityKinds) == 0 {
		opts.ActivityKinds = domainauth.DefaultActivityKinds()
	}
	providers := opts.Providers
	if len(providers) == 0 && opts.API != nil {
		providers = []ports.Authenticator{opts.API}
	}

	logger := opts.Logger.With("component", "session")
	m := &SessionManager{
		api:       opts.API,
		chain:     NewProviderChain(logger, providers...),
		store:     opts.Store,
		clock:     opts.Clock,
		logger:    logger,
		metrics:   opts.Metrics,
		kinds:     make(map[domainauth.ActivityKind]struct{}, len(opts.ActivityKinds)),
		defaultM:  opts.DefaultTimeoutMinutes,
		logoutTO:  opts.LogoutTimeout,
		authTO:    opts.AuthTimeout,
		restoring: true,
		timeoutM:  opts.DefaultTimeoutMinutes,
		subs:      make(map[int]chan domainauth.State),
	}
	for _, k := range opts.ActivityKinds {
		m.kinds[k] = struct{}{}
	}
	m.timer = NewIdleTimer(opts.Clock, m.expire)
	return m, nil
}

// State returns the UI-visible view of the session.
func (m *SessionManager) State() domainauth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *SessionManager) stateLocked() domainauth.State {
	s := domainauth.State{
		IsLoading: m.restoring || m.inflight > 0,
		Error:     m.errMsg,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// InactivityTimeout returns the current timeout preference in minutes.
func (m *SessionManager) InactivityTimeout() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeoutM
}

// IdleDeadline reports when the session expires if no activity is recorded.
func (m *SessionManager) IdleDeadline() (time.Time, bool) {
	return m.timer.Deadline()
}

// Health reports whether startup restoration has finished and whether the
// manager is still open.
func (m *SessionManager) Health() (restored, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.restoring, !m.closed
}

// Restore rebuilds the session from the persisted record. Failures are
// logged and leave the manager logged out without a user-visible error.
func (m *SessionManager) Restore(ctx context.Context) {
	start := m.clock.Now()
	defer func() {
		m.mu.Lock()
		m.restoring = false
		m.publishLocked()
		m.mu.Unlock()
	}()
	if m.isClosed() {
		return
	}

	if raw, err := m.store.Get(ctx, domainauth.KeyInactivityTimeout); err == nil {
		m.mu.Lock()
		m.timeoutM = domainauth.ParseTimeoutMinutes(raw)
		m.mu.Unlock()
	} else if !apperrors.IsNotFound(err) {
		m.logger.WarnContext(ctx, "read inactivity preference", "error", err)
	}

	rawUser, userErr := m.store.Get(ctx, domainauth.KeyUser)
	token, tokenErr := m.store.Get(ctx, domainauth.KeyToken)
	for _, err := range []error{userErr, tokenErr} {
		if err != nil && !apperrors.IsNotFound(err) {
			m.logger.ErrorContext(ctx, "read persisted session", "error", err)
			return
		}
	}
	if userErr != nil && tokenErr != nil {
		return
	}
	if userErr != nil || tokenErr != nil || token == "" {
		m.logger.InfoContext(ctx, "discarding incomplete persisted session")
		m.clearPersisted(ctx)
		return
	}

	var stored domainauth.User
	if err := json.Unmarshal([]byte(rawUser), &stored); err != nil {
		m.restoreFailed(ctx, start, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persisted user is corrupt"))
		return
	}
	if tokenExpired(token, m.clock.Now()) {
		m.restoreFailed(ctx, start, apperrors.Unauthorized("token expired"))
		return
	}
	if m.api == nil {
		m.restoreFailed(ctx, start, apperrors.Unavailable("no backend configured to validate token"))
		return
	}

	user, err := m.api.CurrentUser(ctx, token)
	if err != nil {
		m.restoreFailed(ctx, start, err)
		return
	}

	if !m.adopt(ctx, domainauth.AuthResult{User: user, Token: token}) {
		return
	}
	metrics.EmitAuthOutcome(m.metrics, metrics.AuthMetric{
		Operation: "restore",
		Provider:  m.api.Name(),
		Result:    metrics.ResultSuccess,
		Duration:  m.clock.Since(start),
	})
	m.logger.InfoContext(ctx, "session restored", "user_id", user.ID)
}

func (m *SessionManager) restoreFailed(ctx context.Context, start time.Time, err error) {
	m.logger.InfoContext(ctx, "persisted session rejected", "error", err)
	m.clearPersisted(ctx)
	metrics.EmitAuthOutcome(m.metrics, metrics.AuthMetric{
		Operation: "restore",
		Result:    metrics.ResultError,
		Duration:  m.clock.Since(start),
		Err:       err,
	})
	metrics.EmitSessionEnded(m.metrics, metrics.ReasonRestore)
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

// Login authenticates and, on success, starts a session. It reports whether
// the user is now logged in; on failure State().Error holds the reason.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) bool {
	if !m.begin() {
		return false
	}
	start := m.clock.Now()

	// Callers with identical credentials share one attempt, detached from any
	// single caller's cancellation.
	key := "login\x00" + identifier + "\x00" + password
	ch := m.flight.DoChan(key, func() (any, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.authTO)
		defer cancel()
		return m.chain.Login(actx, identifier, password)
	})

	select {
	case r := <-ch:
		if r.Shared {
			m.logger.DebugContext(ctx, "login coalesced with in-flight request")
		}
		res, _ := r.Val.(ChainResult)
		return m.complete(ctx, "login", start, res, r.Err, msgLoginFailed)
	case <-ctx.Done():
		return m.complete(ctx, "login", start, ChainResult{}, contextError(ctx.Err()), msgLoginFailed)
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "Request timed out. Please try again.")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "Request was canceled.")
}

// Signup registers a new account and logs it in.
func (m *SessionManager) Signup(ctx context.Context, in domainauth.SignupInput) bool {
	if !m.begin() {
		return false
	}
	start := m.clock.Now()

	in = normalizeSignup(in)
	if err := validateSignup(in); err != nil {
		return m.complete(ctx, "signup", start, ChainResult{}, err, msgSignupFailed)
	}
	res, err := m.chain.Signup(ctx, in)
	return m.complete(ctx, "signup", start, res, err, msgSignupFailed)
}

func (m *SessionManager) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.inflight++
	m.errMsg = ""
	m.publishLocked()
	return true
}

func (m *SessionManager) complete(
	ctx context.Context,
	op string,
	start time.Time,
	res ChainResult,
	err error,
	fallback string,
) bool {
	ok := false
	var msg string
	switch {
	case err == nil:
		ok = m.adopt(ctx, res.AuthResult)
	case apperrors.IsCanceled(err):
		// Cancelled callers leave no user-visible error.
		m.logFailure(ctx, op, res.Provider, err)
	default:
		msg = userMessage(err, fallback)
		m.logFailure(ctx, op, res.Provider, err)
	}

	m.mu.Lock()
	if !m.closed {
		m.inflight--
		switch {
		case msg != "":
			m.errMsg = msg
		case ok:
			m.errMsg = ""
		}
		m.publishLocked()
	}
	m.mu.Unlock()

	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case res.FellBack:
		result = metrics.ResultFallback
	}
	metrics.EmitAuthOutcome(m.metrics, metrics.AuthMetric{
		Operation: op,
		Provider:  res.Provider,
		Result:    result,
		Duration:  m.clock.Since(start),
		Err:       err,
	})
	if ok {
		m.logger.InfoContext(ctx, op+" succeeded", "provider", res.Provider, "user_id", res.User.ID, "fallback", res.FellBack)
	}
	return ok
}

func (m *SessionManager) logFailure(ctx context.Context, op, provider string, err error) {
	switch {
	case apperrors.IsValidation(err), apperrors.IsUnauthorized(err), apperrors.IsForbidden(err):
		m.logger.InfoContext(ctx, op+" rejected", "provider", provider, "error", err)
	case apperrors.IsUnavailable(err):
		m.logger.WarnContext(ctx, op+" failed: no provider reachable", "error", err)
	case apperrors.IsCanceled(err), errors.Is(err, context.Canceled):
		m.logger.InfoContext(ctx, op+" canceled by caller", "provider", provider)
	case apperrors.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		m.logger.WarnContext(ctx, op+" timed out", "provider", provider, "error", err)
	default:
		m.logger.ErrorContext(ctx, op+" failed", "provider", provider, "error", err)
	}
}

// adopt persists and activates a session. It reports false when the manager
// was closed meanwhile.
func (m *SessionManager) adopt(ctx context.Context, res domainauth.AuthResult) bool {
	raw, err := json.Marshal(res.User)
	if err != nil {
		m.logger.ErrorContext(ctx, "encode user", "error", err)
	} else {
		if err := m.store.Set(ctx, domainauth.KeyUser, string(raw)); err != nil {
			m.logger.ErrorContext(ctx, "persist user", "error", err)
		}
		if err := m.store.Set(ctx, domainauth.KeyToken, res.Token); err != nil {
			m.logger.ErrorContext(ctx, "persist token", "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	u := res.User
	m.user = &u
	m.token = res.Token
	m.timer.Arm(domainauth.TimeoutDuration(m.timeoutM))
	m.publishLocked()
	metrics.EmitActiveSession(m.metrics, true)
	return true
}

// Logout ends the session locally, then notifies the backend in the
// background. Remote failures are logged and ignored.
func (m *SessionManager) Logout(ctx context.Context) error {
	return m.endSession(ctx, metrics.ReasonExplicit)
}

func (m *SessionManager) expire() {
	m.mu.Lock()
	// A new session armed the timer again after this callback was scheduled.
	rearmed := m.timer.Armed()
	m.mu.Unlock()
	if rearmed {
		return
	}
	if err := m.endSession(context.Background(), metrics.ReasonInactivity); err == nil {
		m.logger.Info("session ended after inactivity")
	}
}

func (m *SessionManager) endSession(ctx context.Context, reason string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	token := m.token
	wasActive := m.user != nil
	m.user = nil
	m.token = ""
	m.timer.Disarm()
	m.publishLocked()
	m.mu.Unlock()

	m.clearPersisted(ctx)

	if wasActive {
		metrics.EmitSessionEnded(m.metrics, reason)
		metrics.EmitActiveSession(m.metrics, false)
	}
	if token != "" && m.api != nil {
		m.bg.Add(1)
		go m.remoteLogout(context.WithoutCancel(ctx), token)
	}
	return nil
}

func (m *SessionManager) remoteLogout(ctx context.Context, token string) {
	defer m.bg.Done()
	ctx, cancel := context.WithTimeout(ctx, m.logoutTO)
	defer cancel()
	if err := m.api.Logout(ctx, token); err != nil {
		m.logger.WarnContext(ctx, "remote logout failed", "error", err)
	}
}

func (m *SessionManager) clearPersisted(ctx context.Context) {
	if err := m.store.Delete(ctx, domainauth.KeyUser, domainauth.KeyToken); err != nil {
		m.logger.ErrorContext(ctx, "clear persisted session", "error", err)
	}
}

// RecordActivity resets the inactivity timer when a session is active and
// kind is a triggering activity. It reports whether the timer was reset.
func (m *SessionManager) RecordActivity(kind domainauth.ActivityKind) bool {
	if _, ok := m.kinds[kind]; !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.user == nil {
		return false
	}
	return m.timer.Reset(domainauth.TimeoutDuration(m.timeoutM))
}

// SetInactivityTimeout persists a new timeout preference. The running
// countdown keeps its period until the next reset.
func (m *SessionManager) SetInactivityTimeout(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return apperrors.ValidationField("inactivityTimeoutMinutes", "Inactivity timeout must be a positive number of minutes.")
	}
	if m.isClosed() {
		return ErrManagerClosed
	}
	if err := m.store.Set(ctx, domainauth.KeyInactivityTimeout, domainauth.FormatTimeoutMinutes(minutes)); err != nil {
		return err
	}
	m.mu.Lock()
	m.timeoutM = minutes
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "inactivity timeout updated", "minutes", minutes)
	return nil
}

// SetInactivityTimeoutPreset applies a named preset such as "1hour".
func (m *SessionManager) SetInactivityTimeoutPreset(ctx context.Context, label string) error {
	minutes, ok := domainauth.TimeoutForPreset(label)
	if !ok {
		return apperrors.ValidationField("preset", "Unknown inactivity timeout preset.")
	}
	return m.SetInactivityTimeout(ctx, minutes)
}

// ReloadPreferences re-reads the persisted timeout preference.
func (m *SessionManager) ReloadPreferences(ctx context.Context) error {
	if m.isClosed() {
		return ErrManagerClosed
	}
	minutes := m.defaultM
	raw, err := m.store.Get(ctx, domainauth.KeyInactivityTimeout)
	switch {
	case err == nil:
		minutes = domainauth.ParseTimeoutMinutes(raw)
	case !apperrors.IsNotFound(err):
		return err
	}
	m.mu.Lock()
	changed := m.timeoutM != minutes
	m.timeoutM = minutes
	m.mu.Unlock()
	if changed {
		m.logger.InfoContext(ctx, "inactivity timeout reloaded", "minutes", minutes)
	}
	return nil
}

// Subscribe returns a channel that receives the latest State after each
// change. Slow receivers only see the most recent state. The returned func
// unsubscribes and closes the channel.
func (m *SessionManager) Subscribe() (<-chan domainauth.State, func()) {
	ch := make(chan domainauth.State, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- m.stateLocked()

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

// publishLocked must be called with mu held.
func (m *SessionManager) publishLocked() {
	s := m.stateLocked()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (m *SessionManager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close stops the inactivity timer, closes subscriber channels and waits
// for pending remote logouts. The persisted record is left untouched.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.timer.Close()
	m.mu.Unlock()

	m.subMu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subMu.Unlock()

	m.bg.Wait()
	return nil
}
