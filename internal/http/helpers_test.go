package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dev-16-apk/breedify/internal/adapters/demoauth"
	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	mockauth "github.com/Dev-16-apk/breedify/internal/mocks/auth"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/Dev-16-apk/breedify/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	manager *service.SessionManager
	store   *mockauth.MemoryStore
	clock   *clockwork.FakeClock
	server  *httptest.Server
}

type envOptions struct {
	limiter *ClientLimiter
	origins []string
	metrics http.Handler
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := mockauth.NewMemoryStore(nil)
	api := mockauth.NewUnreachableAPI()
	demo, err := demoauth.NewProvider(demoauth.Config{Clock: clock})
	require.NoError(t, err)

	m, err := service.NewSessionManager(service.SessionManagerOptions{
		API:       api,
		Providers: []ports.Authenticator{api, demo},
		Store:     store,
		Clock:     clock,
	})
	require.NoError(t, err)
	m.Restore(context.Background())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(RouterOptions{
		Manager:        m,
		Logger:         logger,
		AllowedOrigins: opts.origins,
		AuthLimiter:    opts.limiter,
		Metrics:        opts.metrics,
	}))
	t.Cleanup(func() {
		_ = m.Close()
		srv.Close()
	})
	return &testEnv{manager: m, store: store, clock: clock, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeState(t *testing.T, resp *http.Response) domainauth.State {
	t.Helper()
	var st domainauth.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
