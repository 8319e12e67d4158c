package httpx

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}

// healthHandler reports liveness plus the session manager's lifecycle phase.
// It answers 503 once the manager has been closed for shutdown.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	code, body := http.StatusOK, healthResponse{Status: "ok"}
	if m, ok := LookupSessionManager(r.Context()); ok {
		restored, open := m.Health()
		switch {
		case !open:
			code, body = http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Session: "closed"}
		case !restored:
			body.Session = "restoring"
		default:
			body.Session = "ready"
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, body)
}
