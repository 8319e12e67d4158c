package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dev-16-apk/breedify/internal/adapters/demoauth"
	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/mocks"
	mockauth "github.com/Dev-16-apk/breedify/internal/mocks/auth"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/Dev-16-apk/breedify/internal/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingSink struct {
	mu     sync.Mutex
	counts []recorded
}

type recorded struct {
	name string
	tags map[string]string
}

func (r *recordingSink) Count(name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, recorded{name: name, tags: tags})
}

func (r *recordingSink) Gauge(string, float64, map[string]string)       {}
func (r *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (r *recordingSink) has(name, tag, value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.counts {
		if c.name == name && c.tags[tag] == value {
			return true
		}
	}
	return false
}

type harness struct {
	m     *SessionManager
	api   *mockauth.FakeAuthAPI
	store *mockauth.MemoryStore
	clock *clockwork.FakeClock
	sink  *recordingSink
}

type harnessOpts struct {
	api           *mockauth.FakeAuthAPI
	seed          map[string]string
	demoDisabled  bool
	logoutTimeout time.Duration
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()
	if o.api == nil {
		o.api = mockauth.NewUnreachableAPI()
	}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := mockauth.NewMemoryStore(o.seed)
	sink := &recordingSink{}

	providers := []ports.Authenticator{o.api}
	if !o.demoDisabled {
		demo, err := demoauth.NewProvider(demoauth.Config{Clock: clock})
		require.NoError(t, err)
		providers = append(providers, demo)
	}

	m, err := NewSessionManager(SessionManagerOptions{
		API:           o.api,
		Providers:     providers,
		Store:         store,
		Clock:         clock,
		Metrics:       sink,
		LogoutTimeout: o.logoutTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return &harness{m: m, api: o.api, store: store, clock: clock, sink: sink}
}

func (h *harness) restored(t *testing.T) *harness {
	t.Helper()
	h.m.Restore(context.Background())
	return h
}

func loggedOut(m *SessionManager) func() bool {
	return func() bool { return m.State().User == nil }
}

func TestNewSessionManager_RequiresStore(t *testing.T) {
	_, err := NewSessionManager(SessionManagerOptions{})
	assert.Error(t, err)
}

func TestSessionManager_StartsLoadingUntilRestored(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	assert.True(t, h.m.State().IsLoading)

	h.m.Restore(context.Background())
	st := h.m.State()
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Error)
}

func TestSessionManager_DemoLoginWhenRemoteUnreachable(t *testing.T) {
	tests := []struct {
		identifier string
		password   string
		wantID     string
		wantRole   domainauth.Role
	}{
		{"officer@breedify.gov.in", "demo123", "1", domainauth.RoleFieldOfficer},
		{"  VET@breedify.gov.in ", " demo123 ", "2", domainauth.RoleVeterinarian},
		{"9876543212", "demo123", "3", domainauth.RoleAdmin},
		{"+91 98765 43210", "demo123", "1", domainauth.RoleFieldOfficer},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			h := newHarness(t, harnessOpts{}).restored(t)

			ok := h.m.Login(context.Background(), tt.identifier, tt.password)
			require.True(t, ok)

			st := h.m.State()
			require.NotNil(t, st.User)
			assert.Equal(t, tt.wantID, st.User.ID)
			assert.Equal(t, tt.wantRole, st.User.Role)
			assert.False(t, st.IsLoading)
			assert.Empty(t, st.Error)

			token, present := h.store.Value(domainauth.KeyToken)
			assert.True(t, present)
			assert.Equal(t, demoauth.TokenPrefix+tt.wantID, token)
			_, present = h.store.Value(domainauth.KeyUser)
			assert.True(t, present)

			assert.True(t, h.sink.has("session.auth", "result", "fallback"))
		})
	}
}

func TestSessionManager_InvalidDemoCredentials(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)

	ok := h.m.Login(context.Background(), "9876543211", "wrong")
	assert.False(t, ok)

	st := h.m.State()
	assert.Nil(t, st.User)
	assert.Equal(t, "Invalid credentials. Please try again.", st.Error)
	assert.Empty(t, h.store.Keys())
}

func TestSessionManager_RemoteRejectionIsFinal(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"unauthorized", apperrors.Unauthorized("Invalid credentials. Please try again."), "Invalid credentials. Please try again."},
		{"server error", apperrors.Remote(500, "Server error. Please try again later."), "Server error. Please try again later."},
		{"forbidden", apperrors.Forbidden("You don't have permission to perform this action."), "You don't have permission to perform this action."},
		{"internal", apperrors.Internal("bad payload"), "Login failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockauth.FakeAuthAPI{
				LoginFunc: func(context.Context, string, string) (domainauth.AuthResult, error) {
					return domainauth.AuthResult{}, tt.err
				},
			}
			h := newHarness(t, harnessOpts{api: api}).restored(t)

			// Valid demo credentials must not be consulted when the backend answered.
			ok := h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123")
			assert.False(t, ok)
			assert.Nil(t, h.m.State().User)
			assert.Equal(t, tt.wantMsg, h.m.State().Error)
		})
	}
}

func TestSessionManager_RemoteLoginSuccess(t *testing.T) {
	api := &mockauth.FakeAuthAPI{
		LoginFunc: func(_ context.Context, id, pw string) (domainauth.AuthResult, error) {
			assert.Equal(t, "vet@breedify.gov.in", id)
			assert.Equal(t, "s3cret", pw)
			return domainauth.AuthResult{User: testutil.VetUser(), Token: "jwt-token"}, nil
		},
	}
	h := newHarness(t, harnessOpts{api: api}).restored(t)

	require.True(t, h.m.Login(context.Background(), "vet@breedify.gov.in", "s3cret"))
	token, _ := h.store.Value(domainauth.KeyToken)
	assert.Equal(t, "jwt-token", token)
	assert.True(t, h.sink.has("session.auth", "provider", "remote"))
}

func TestSessionManager_AllProvidersUnreachable(t *testing.T) {
	h := newHarness(t, harnessOpts{demoDisabled: true}).restored(t)

	assert.False(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	assert.Equal(t, "Backend service unavailable", h.m.State().Error)
}

func TestSessionManager_LoginClearsPreviousError(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)

	require.False(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "nope"))
	require.NotEmpty(t, h.m.State().Error)

	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	assert.Empty(t, h.m.State().Error)
}

func TestSessionManager_LogoutClearsEverything(t *testing.T) {
	logoutCalled := make(chan string, 1)
	api := &mockauth.FakeAuthAPI{
		LogoutFunc: func(ctx context.Context, token string) error {
			logoutCalled <- token
			<-ctx.Done()
			return ctx.Err()
		},
	}
	h := newHarness(t, harnessOpts{
		api:           api,
		seed:          testutil.NewRecord().WithTimeout("60").Build(),
		logoutTimeout: 20 * time.Millisecond,
	}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	require.True(t, h.m.timer.Armed())

	require.NoError(t, h.m.Logout(context.Background()))

	assert.Nil(t, h.m.State().User)
	assert.False(t, h.m.timer.Armed())
	assert.Equal(t, []string{domainauth.KeyInactivityTimeout}, h.store.Keys())

	select {
	case token := <-logoutCalled:
		assert.Equal(t, "demo_token_1", token)
	case <-time.After(time.Second):
		t.Fatal("remote logout was not attempted")
	}
	require.NoError(t, h.m.Close())
	assert.True(t, h.sink.has("session.ended", "reason", "explicit"))
}

func TestSessionManager_LogoutSurvivesStoreFailure(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))

	h.store.DeleteErr = errors.New("disk full")
	require.NoError(t, h.m.Logout(context.Background()))
	assert.Nil(t, h.m.State().User)
	assert.False(t, h.m.timer.Armed())
}

func TestSessionManager_InactivityLogsOut(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	waitForTimers(t, h.clock, 1)

	h.clock.Advance(29 * time.Minute)
	assert.Never(t, loggedOut(h.m), 50*time.Millisecond, 10*time.Millisecond)

	h.clock.Advance(time.Minute)
	assert.Eventually(t, loggedOut(h.m), time.Second, 5*time.Millisecond)

	_, present := h.store.Value(domainauth.KeyToken)
	assert.False(t, present)
	assert.Eventually(t, func() bool { return h.sink.has("session.ended", "reason", "inactivity") },
		time.Second, 5*time.Millisecond)
}

func TestSessionManager_ActivityResetsTimer(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	waitForTimers(t, h.clock, 1)

	h.clock.Advance(29 * time.Minute)
	require.True(t, h.m.RecordActivity(domainauth.ActivityKeyDown))

	// Past the original expiry, short of a full period since the activity.
	h.clock.Advance(29 * time.Minute)
	assert.Never(t, loggedOut(h.m), 50*time.Millisecond, 10*time.Millisecond)

	h.clock.Advance(time.Minute)
	assert.Eventually(t, loggedOut(h.m), time.Second, 5*time.Millisecond)
}

func TestSessionManager_RecordActivityFilters(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)

	assert.False(t, h.m.RecordActivity(domainauth.ActivityClick), "logged out")

	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	assert.False(t, h.m.RecordActivity("mousemove"))
	for _, k := range domainauth.DefaultActivityKinds() {
		assert.True(t, h.m.RecordActivity(k), k)
	}
}

func TestSessionManager_TimeoutPreferenceAppliesOnNextArm(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	waitForTimers(t, h.clock, 1)

	require.NoError(t, h.m.SetInactivityTimeoutPreset(context.Background(), "15min"))
	v, _ := h.store.Value(domainauth.KeyInactivityTimeout)
	assert.Equal(t, "15", v)

	// Running countdown keeps its 30 minute period.
	h.clock.Advance(20 * time.Minute)
	assert.Never(t, loggedOut(h.m), 50*time.Millisecond, 10*time.Millisecond)

	require.True(t, h.m.RecordActivity(domainauth.ActivityScroll))
	deadline, ok := h.m.IdleDeadline()
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), deadline)
}

func TestSessionManager_SetInactivityTimeoutValidation(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	ctx := context.Background()

	assert.True(t, apperrors.IsValidation(h.m.SetInactivityTimeout(ctx, 0)))
	assert.True(t, apperrors.IsValidation(h.m.SetInactivityTimeoutPreset(ctx, "2days")))
	assert.Equal(t, domainauth.DefaultInactivityTimeoutMinutes, h.m.InactivityTimeout())

	require.NoError(t, h.m.SetInactivityTimeoutPreset(ctx, "4hours"))
	assert.Equal(t, 240, h.m.InactivityTimeout())
}

func TestSessionManager_ReloadPreferences(t *testing.T) {
	h := newHarness(t, harnessOpts{seed: testutil.NewRecord().WithTimeout("60").Build()}).restored(t)
	assert.Equal(t, 60, h.m.InactivityTimeout())

	require.NoError(t, h.store.Set(context.Background(), domainauth.KeyInactivityTimeout, "garbage"))
	require.NoError(t, h.m.ReloadPreferences(context.Background()))
	assert.Equal(t, 30, h.m.InactivityTimeout())

	require.NoError(t, h.store.Delete(context.Background(), domainauth.KeyInactivityTimeout))
	require.NoError(t, h.store.Set(context.Background(), domainauth.KeyInactivityTimeout, "45"))
	require.NoError(t, h.m.ReloadPreferences(context.Background()))
	assert.Equal(t, 45, h.m.InactivityTimeout())
}

func TestSessionManager_RestoreRejectedToken(t *testing.T) {
	api := &mockauth.FakeAuthAPI{
		CurrentUserFunc: func(context.Context, string) (domainauth.User, error) {
			return domainauth.User{}, apperrors.Unauthorized("Your session has expired. Please log in again.")
		},
	}
	seed := testutil.NewRecord().WithUser(testutil.OfficerUser()).WithToken("stale").WithTimeout("15").Build()
	h := newHarness(t, harnessOpts{api: api, seed: seed}).restored(t)

	st := h.m.State()
	assert.Nil(t, st.User)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
	assert.Equal(t, []string{domainauth.KeyInactivityTimeout}, h.store.Keys())
	assert.Equal(t, 15, h.m.InactivityTimeout())
	assert.False(t, h.m.timer.Armed())
	assert.True(t, h.sink.has("session.ended", "reason", "restore_failed"))
}

func TestSessionManager_RestoreWithUnreachableBackend(t *testing.T) {
	seed := testutil.NewRecord().WithUser(testutil.OfficerUser()).WithToken("demo_token_1").Build()
	h := newHarness(t, harnessOpts{seed: seed}).restored(t)

	assert.Nil(t, h.m.State().User)
	assert.Empty(t, h.m.State().Error)
	assert.Empty(t, h.store.Keys())
	assert.Equal(t, 1, h.api.Calls("me"))
}

func TestSessionManager_RestoreExpiredJWTSkipsNetwork(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token := testutil.SignedToken("1", h.clock.Now().Add(-time.Minute))
	seedStore(t, h.store, testutil.NewRecord().WithUser(testutil.OfficerUser()).WithToken(token).Build())

	h.m.Restore(context.Background())
	assert.Nil(t, h.m.State().User)
	assert.Zero(t, h.api.Calls("me"))
	assert.Empty(t, h.store.Keys())
}

func TestSessionManager_RestoreCorruptUser(t *testing.T) {
	seed := testutil.NewRecord().WithRawUser("{not-json").WithToken("t").Build()
	h := newHarness(t, harnessOpts{seed: seed}).restored(t)

	assert.Nil(t, h.m.State().User)
	assert.Empty(t, h.store.Keys())
	assert.Zero(t, h.api.Calls("me"))
}

func TestSessionManager_RestoreIncompleteRecord(t *testing.T) {
	seed := testutil.NewRecord().WithUser(testutil.OfficerUser()).Build()
	h := newHarness(t, harnessOpts{seed: seed}).restored(t)

	assert.Nil(t, h.m.State().User)
	assert.Empty(t, h.store.Keys())
}

func TestSessionManager_RestoreStoreFailure(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.store.GetErr = errors.New("io error")

	h.m.Restore(context.Background())
	st := h.m.State()
	assert.Nil(t, st.User)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Equal(t, domainauth.DefaultInactivityTimeoutMinutes, h.m.InactivityTimeout())
}

func TestSessionManager_RestoreSuccessWithGeneratedMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAuthAPI(ctrl)
	clock := clockwork.NewFakeClock()
	token := testutil.SignedToken("2", clock.Now().Add(time.Hour))
	fresh := testutil.VetUser()
	fresh.Name = "Dr. Renamed"

	api.EXPECT().CurrentUser(gomock.Any(), token).Return(fresh, nil)
	api.EXPECT().Name().Return("remote").AnyTimes()

	store := mockauth.NewMemoryStore(testutil.NewRecord().WithUser(testutil.VetUser()).WithToken(token).Build())
	m, err := NewSessionManager(SessionManagerOptions{API: api, Store: store, Clock: clock})
	require.NoError(t, err)
	defer m.Close()

	m.Restore(context.Background())

	st := m.State()
	require.NotNil(t, st.User)
	assert.Equal(t, "Dr. Renamed", st.User.Name)
	raw, _ := store.Value(domainauth.KeyUser)
	assert.Contains(t, raw, "Dr. Renamed")
	assert.True(t, m.timer.Armed())
}

func TestSessionManager_SignupValidation(t *testing.T) {
	tests := []struct {
		name      string
		in        domainauth.SignupInput
		wantError string
	}{
		{"bad email", domainauth.SignupInput{Email: "not-an-email", Password: "pw", Name: "A"}, "Email must be a valid email address."},
		{"missing password", domainauth.SignupInput{Email: "a@b.co", Name: "A"}, "Password cannot be blank."},
		{"missing name", domainauth.SignupInput{Email: "a@b.co", Password: "pw", Name: "  "}, "Name cannot be blank."},
		{"unknown role", domainauth.SignupInput{Email: "a@b.co", Password: "pw", Name: "A", Role: "farmer"}, "Role must be one of field_officer, veterinarian, admin."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessOpts{}).restored(t)

			assert.False(t, h.m.Signup(context.Background(), tt.in))
			assert.Equal(t, tt.wantError, h.m.State().Error)
			assert.Zero(t, h.api.Calls("signup"))
		})
	}
}

func TestSessionManager_SignupFallsBackToDemo(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)

	ok := h.m.Signup(context.Background(), domainauth.SignupInput{
		Email:    "  New.Officer@Example.COM ",
		Password: "pw",
		Name:     "New Officer",
	})
	require.True(t, ok)

	u := h.m.State().User
	require.NotNil(t, u)
	assert.Equal(t, "new.officer@example.com", u.Email)
	assert.Equal(t, domainauth.RoleFieldOfficer, u.Role)
	assert.Equal(t, "1740819600000", u.ID)
	assert.True(t, h.m.timer.Armed())
}

func TestSessionManager_SignupRemoteConflict(t *testing.T) {
	api := &mockauth.FakeAuthAPI{
		SignupFunc: func(_ context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error) {
			assert.Equal(t, domainauth.RoleVeterinarian, in.Role)
			return domainauth.AuthResult{}, apperrors.Remote(409, "Email already registered")
		},
	}
	h := newHarness(t, harnessOpts{api: api}).restored(t)

	ok := h.m.Signup(context.Background(), domainauth.SignupInput{
		Email: "vet@breedify.gov.in", Password: "pw", Name: "Vet", Role: "Veterinarian",
	})
	assert.False(t, ok)
	assert.Equal(t, "Email already registered", h.m.State().Error)
}

func TestSessionManager_ConcurrentLoginsCoalesce(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	api := &mockauth.FakeAuthAPI{
		LoginFunc: func(context.Context, string, string) (domainauth.AuthResult, error) {
			calls.Add(1)
			<-release
			return domainauth.AuthResult{User: testutil.OfficerUser(), Token: "tok"}, nil
		},
	}
	h := newHarness(t, harnessOpts{api: api}).restored(t)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.m.Login(context.Background(), "officer@breedify.gov.in", "pw")
		}(i)
	}

	assert.Eventually(t, func() bool {
		h.m.mu.Lock()
		defer h.m.mu.Unlock()
		return h.m.inflight == 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, h.m.State().IsLoading)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, h.m.State().IsLoading)
}

func TestSessionManager_CoalescedLoginOutlivesCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	api := &mockauth.FakeAuthAPI{
		LoginFunc: func(ctx context.Context, _, _ string) (domainauth.AuthResult, error) {
			calls.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
				return domainauth.AuthResult{}, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "Request was canceled.")
			}
			return domainauth.AuthResult{User: testutil.OfficerUser(), Token: "tok"}, nil
		},
	}
	h := newHarness(t, harnessOpts{api: api}).restored(t)

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstDone := make(chan bool, 1)
	go func() { firstDone <- h.m.Login(first, "officer@breedify.gov.in", "pw") }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondDone := make(chan bool, 1)
	go func() { secondDone <- h.m.Login(context.Background(), "officer@breedify.gov.in", "pw") }()
	require.Eventually(t, func() bool {
		h.m.mu.Lock()
		defer h.m.mu.Unlock()
		return h.m.inflight == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.False(t, <-firstDone)
	st := h.m.State()
	assert.Empty(t, st.Error)
	assert.True(t, st.IsLoading)

	close(release)
	assert.True(t, <-secondDone)
	st = h.m.State()
	require.NotNil(t, st.User)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionManager_LoginCallerDeadline(t *testing.T) {
	release := make(chan struct{})
	api := &mockauth.FakeAuthAPI{
		LoginFunc: func(context.Context, string, string) (domainauth.AuthResult, error) {
			<-release
			return domainauth.AuthResult{User: testutil.OfficerUser(), Token: "tok"}, nil
		},
	}
	h := newHarness(t, harnessOpts{api: api}).restored(t)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, h.m.Login(ctx, "officer@breedify.gov.in", "pw"))
	st := h.m.State()
	assert.Nil(t, st.User)
	assert.Equal(t, msgLoginFailed, st.Error)
	assert.False(t, st.IsLoading)
}

func TestSessionManager_LogFailureLevels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"canceled", apperrors.Wrap(context.Canceled, apperrors.ErrCodeCanceled, "Request was canceled."), "INFO"},
		{"bare canceled", context.Canceled, "INFO"},
		{"timeout", apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "Request timed out."), "WARN"},
		{"bare deadline", fmt.Errorf("login: %w", context.DeadlineExceeded), "WARN"},
		{"unavailable", apperrors.Unavailable("down"), "WARN"},
		{"rejected", apperrors.Unauthorized("Invalid credentials"), "INFO"},
		{"unexpected", errors.New("boom"), "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			m := &SessionManager{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

			m.logFailure(context.Background(), "login", "remote", tt.err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
		})
	}
}

func TestSessionManager_Subscribe(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	updates, unsubscribe := h.m.Subscribe()

	first := <-updates
	assert.Nil(t, first.User)

	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))

	// Intermediate loading states may be dropped; the latest one must arrive.
	var last domainauth.State
	require.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.User != nil && !last.IsLoading
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

func TestSessionManager_ClosedManagerRejectsCalls(t *testing.T) {
	h := newHarness(t, harnessOpts{}).restored(t)
	require.True(t, h.m.Login(context.Background(), "officer@breedify.gov.in", "demo123"))
	updates, _ := h.m.Subscribe()

	require.NoError(t, h.m.Close())
	require.NoError(t, h.m.Close())

	before := h.m.State()
	assert.False(t, h.m.Login(context.Background(), "vet@breedify.gov.in", "demo123"))
	assert.ErrorIs(t, h.m.Logout(context.Background()), ErrManagerClosed)
	assert.False(t, h.m.RecordActivity(domainauth.ActivityClick))
	assert.ErrorIs(t, h.m.ReloadPreferences(context.Background()), ErrManagerClosed)
	assert.Equal(t, before, h.m.State())

	// Persisted session survives a shutdown.
	_, present := h.store.Value(domainauth.KeyToken)
	assert.True(t, present)

	for range updates {
	}
	ch, _ := h.m.Subscribe()
	_, open := <-ch
	assert.False(t, open)
}

func seedStore(t *testing.T, store *mockauth.MemoryStore, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, store.Set(context.Background(), k, v))
	}
}
