package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
)

// SessionHandlers serves the session capability interface as JSON.
type SessionHandlers struct {
	Logger *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type activityRequest struct {
	Kind string `json:"kind"`
}

type activityResponse struct {
	Reset bool `json:"reset"`
}

type preferencesRequest struct {
	InactivityTimeoutMinutes *int   `json:"inactivityTimeoutMinutes,omitempty"`
	Preset                   string `json:"preset,omitempty"`
}

type preferencesResponse struct {
	InactivityTimeoutMinutes int `json:"inactivityTimeoutMinutes"`
}

// State handles GET /api/session.
func (h *SessionHandlers) State(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SessionManagerFromContext(r.Context()).State())
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	m := SessionManagerFromContext(r.Context())
	if m.Login(r.Context(), req.Identifier, req.Password) {
		WriteJSON(w, http.StatusOK, m.State())
		return
	}
	WriteJSON(w, http.StatusUnauthorized, m.State())
}

// Signup handles POST /api/session/signup.
func (h *SessionHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	m := SessionManagerFromContext(r.Context())
	in := domainauth.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domainauth.Role(req.Role),
	}
	if m.Signup(r.Context(), in) {
		WriteJSON(w, http.StatusOK, m.State())
		return
	}
	WriteJSON(w, http.StatusBadRequest, m.State())
}

// Logout handles POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	m := SessionManagerFromContext(r.Context())
	if err := m.Logout(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, m.State())
}

// Activity handles POST /api/session/activity.
func (h *SessionHandlers) Activity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	kind := domainauth.ActivityKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	reset := SessionManagerFromContext(r.Context()).RecordActivity(kind)
	WriteJSON(w, http.StatusOK, activityResponse{Reset: reset})
}

// Preferences handles GET /api/session/preferences.
func (h *SessionHandlers) Preferences(w http.ResponseWriter, r *http.Request) {
	m := SessionManagerFromContext(r.Context())
	WriteJSON(w, http.StatusOK, preferencesResponse{InactivityTimeoutMinutes: m.InactivityTimeout()})
}

// UpdatePreferences handles PUT /api/session/preferences.
func (h *SessionHandlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	m := SessionManagerFromContext(r.Context())

	var err error
	switch {
	case req.Preset != "":
		err = m.SetInactivityTimeoutPreset(r.Context(), req.Preset)
	case req.InactivityTimeoutMinutes != nil:
		err = m.SetInactivityTimeout(r.Context(), *req.InactivityTimeoutMinutes)
	default:
		err = apperrors.Validation("Provide inactivityTimeoutMinutes or preset.")
	}
	if err != nil {
		if !apperrors.IsValidation(err) {
			h.logger().ErrorContext(r.Context(), "update preferences", "error", err)
		}
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, preferencesResponse{InactivityTimeoutMinutes: m.InactivityTimeout()})
}
