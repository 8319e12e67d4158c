//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// mockgen is tracked in go.mod (go.uber.org/mock) and run through go:generate
// in internal/mocks; the rest are installed globally via `go install`.
package tools

// Development tools:
//
// mockgen - Generates gomock doubles for internal/ports
//   Run: go generate ./internal/mocks/...
//   Docs: https://github.com/uber-go/mock
//
// Air - Live reload for the session service
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run: air --build.cmd "go build -o ./tmp/breedify-session ./cmd/breedify-session" --build.bin ./tmp/breedify-session
//   Docs: https://github.com/air-verse/air
