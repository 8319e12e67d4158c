package httpx

import (
	"log/slog"
	"net/http"

	"github.com/Dev-16-apk/breedify/internal/service"
)

// RouterOptions holds everything the HTTP router needs.
type RouterOptions struct {
	Manager *service.SessionManager
	Logger  *slog.Logger

	// AllowedOrigins for the websocket endpoint; empty means same-origin only.
	AllowedOrigins []string
	// AuthLimiter throttles login and signup per client. Nil disables it.
	AuthLimiter *ClientLimiter
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter creates and configures the session HTTP router.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	sessions := &SessionHandlers{Logger: logger}
	events := NewEventHandlers(opts.AllowedOrigins, logger)
	limited := RateLimit(opts.AuthLimiter)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	registerSessionRoutes(mux, sessions, limited)
	mux.Handle("GET /api/session/events", http.HandlerFunc(events.Stream))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	var handler http.Handler = mux
	handler = InjectSessionManager(opts.Manager)(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers, limited func(http.Handler) http.Handler) {
	mux.Handle("GET /api/session", http.HandlerFunc(h.State))
	mux.Handle("POST /api/session/login", limited(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/session/signup", limited(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/session/logout", http.HandlerFunc(h.Logout))
	mux.Handle("POST /api/session/activity", http.HandlerFunc(h.Activity))
	mux.Handle("GET /api/session/preferences", http.HandlerFunc(h.Preferences))
	mux.Handle("PUT /api/session/preferences", http.HandlerFunc(h.UpdatePreferences))
}
