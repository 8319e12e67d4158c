// Package mocks provides generated mock implementations of the session ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockAuthAPI(ctrl)
//	api.EXPECT().CurrentUser(gomock.Any(), "token").Return(user, nil)
package mocks

// Generate mock for AuthAPI interface from internal/ports package.
// This creates MockAuthAPI with methods for all AuthAPI interface methods:
// Name, Login, Signup, Logout, CurrentUser
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=auth_api_mock.go github.com/Dev-16-apk/breedify/internal/ports AuthAPI

// Generate mock for KeyValueStore interface from internal/ports package.
// This creates MockKeyValueStore with methods for all KeyValueStore interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=kv_store_mock.go github.com/Dev-16-apk/breedify/internal/ports KeyValueStore
