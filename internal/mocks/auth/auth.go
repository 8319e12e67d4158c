package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sort"
	"sync"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI       = (*FakeAuthAPI)(nil)
	_ ports.KeyValueStore = (*MemoryStore)(nil)
)

// FakeAuthAPI simulates the remote backend. Unset funcs fall back to
// returning an Unavailable error, which mirrors an unreachable backend.
type FakeAuthAPI struct {
	LoginFunc       func(ctx context.Context, emailOrPhone, password string) (domainauth.AuthResult, error)
	SignupFunc      func(ctx context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error)
	LogoutFunc      func(ctx context.Context, token string) error
	CurrentUserFunc func(ctx context.Context, token string) (domainauth.User, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewUnreachableAPI returns a FakeAuthAPI whose every call fails as unavailable.
func NewUnreachableAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

func (f *FakeAuthAPI) Name() string { return "remote" }

func (f *FakeAuthAPI) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how many times op ("login", "signup", "logout", "me") was invoked.
func (f *FakeAuthAPI) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeAuthAPI) Login(ctx context.Context, emailOrPhone, password string) (domainauth.AuthResult, error) {
	f.record("login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, emailOrPhone, password)
	}
	return domainauth.AuthResult{}, apperrors.Unavailable("Backend service unavailable")
}

func (f *FakeAuthAPI) Signup(ctx context.Context, in domainauth.SignupInput) (domainauth.AuthResult, error) {
	f.record("signup")
	if f.SignupFunc != nil {
		return f.SignupFunc(ctx, in)
	}
	return domainauth.AuthResult{}, apperrors.Unavailable("Backend service unavailable")
}

func (f *FakeAuthAPI) Logout(ctx context.Context, token string) error {
	f.record("logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, token)
	}
	return apperrors.Unavailable("Backend service unavailable")
}

func (f *FakeAuthAPI) CurrentUser(ctx context.Context, token string) (domainauth.User, error) {
	f.record("me")
	if f.CurrentUserFunc != nil {
		return f.CurrentUserFunc(ctx, token)
	}
	return domainauth.User{}, apperrors.Unavailable("Backend service unavailable")
}

// MemoryStore is an in-memory key-value store for unit tests.
// Setting GetErr, SetErr or DeleteErr makes the matching operation fail.
type MemoryStore struct {
	GetErr    error
	SetErr    error
	DeleteErr error

	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates a store pre-populated with seed.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", apperrors.NotFoundf("key %q not found", key)
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Value returns the raw value for key and whether it is present.
func (m *MemoryStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
