package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strconv"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form so it round-trips through the backend and the persisted record.
type Role string

const (
	RoleFieldOfficer Role = "field_officer"
	RoleVeterinarian Role = "veterinarian"
	RoleAdmin        Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleFieldOfficer, RoleVeterinarian, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole parses a role string, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// User is the authenticated principal as returned by the backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// AuthResult is what a successful login or signup yields.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignupInput groups the fields required to register a new account.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// State is the read-only view of a session exposed to the UI layer.
type State struct {
	User      *User  `json:"user"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// LoggedIn reports whether the state carries an authenticated user.
func (s State) LoggedIn() bool { return s.User != nil }

// Persisted record keys.
const (
	KeyUser              = "breedify_user"
	KeyToken             = "breedify_token"
	KeyInactivityTimeout = "breedify_inactivity_timeout"
)

// DefaultInactivityTimeoutMinutes applies when no preference is persisted.
const DefaultInactivityTimeoutMinutes = 30

// ParseTimeoutMinutes decodes a persisted timeout preference.
// Unset, unparseable or non-positive values fall back to the default.
func ParseTimeoutMinutes(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultInactivityTimeoutMinutes
	}
	return n
}

// FormatTimeoutMinutes encodes a timeout preference for persistence.
func FormatTimeoutMinutes(minutes int) string {
	return strconv.Itoa(minutes)
}

// TimeoutDuration converts a minute preference into a duration.
func TimeoutDuration(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = DefaultInactivityTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

var timeoutPresets = map[string]int{
	"15min":  15,
	"30min":  30,
	"1hour":  60,
	"4hours": 240,
}

// TimeoutForPreset resolves a settings-screen preset label into minutes.
func TimeoutForPreset(label string) (int, bool) {
	m, ok := timeoutPresets[strings.ToLower(strings.TrimSpace(label))]
	return m, ok
}

// ActivityKind names a raw UI activity signal.
type ActivityKind string

const (
	ActivityPointerDown ActivityKind = "pointerdown"
	ActivityKeyDown     ActivityKind = "keydown"
	ActivityScroll      ActivityKind = "scroll"
	ActivityTouchStart  ActivityKind = "touchstart"
	ActivityClick       ActivityKind = "click"
)

// DefaultActivityKinds returns the signals that reset the inactivity timer by default.
func DefaultActivityKinds() []ActivityKind {
	return []ActivityKind{
		ActivityPointerDown,
		ActivityKeyDown,
		ActivityScroll,
		ActivityTouchStart,
		ActivityClick,
	}
}

// ParseActivityKinds normalises configured kind names, dropping blanks and duplicates.
func ParseActivityKinds(names []string) []ActivityKind {
	seen := make(map[ActivityKind]struct{}, len(names))
	out := make([]ActivityKind, 0, len(names))
	for _, n := range names {
		k := ActivityKind(strings.ToLower(strings.TrimSpace(n)))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
