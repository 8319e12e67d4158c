package config

import (
	"strings"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
)

// SessionConfig controls the session manager.
type SessionConfig struct {
	// DefaultTimeoutMinutes applies until the user saves a preference.
	DefaultTimeoutMinutes int `env:"DEFAULT_TIMEOUT_MINUTES" envDefault:"30"`

	// ActivityKinds lists the UI events that reset the inactivity timer.
	ActivityKinds []string `env:"ACTIVITY_KINDS" envDefault:"pointerdown,keydown,scroll,touchstart,click" envSeparator:","`

	// RestoreTimeout bounds session restoration at startup.
	RestoreTimeout time.Duration `env:"RESTORE_TIMEOUT" envDefault:"45s"`

	// AuthTimeout bounds a login attempt shared by concurrent callers.
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"90s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.DefaultTimeoutMinutes <= 0 {
		s.DefaultTimeoutMinutes = domainauth.DefaultInactivityTimeoutMinutes
	}
	if len(domainauth.ParseActivityKinds(s.ActivityKinds)) == 0 {
		s.ActivityKinds = nil
		for _, k := range domainauth.DefaultActivityKinds() {
			s.ActivityKinds = append(s.ActivityKinds, string(k))
		}
	}
	if s.RestoreTimeout <= 0 {
		s.RestoreTimeout = 45 * time.Second
	}
	if s.AuthTimeout <= 0 {
		s.AuthTimeout = 90 * time.Second
	}
}

// Kinds returns the parsed activity kinds.
func (s *SessionConfig) Kinds() []domainauth.ActivityKind {
	return domainauth.ParseActivityKinds(s.ActivityKinds)
}

// DemoConfig controls the offline demo directory used when the backend is unreachable.
type DemoConfig struct {
	Enabled     bool          `env:"ENABLED"      envDefault:"true"`
	Password    string        `env:"PASSWORD"     envDefault:"demo123"`
	Region      string        `env:"REGION"       envDefault:"IN"`
	LoginDelay  time.Duration `env:"LOGIN_DELAY"  envDefault:"1s"`
	SignupDelay time.Duration `env:"SIGNUP_DELAY" envDefault:"1500ms"`
}

// Sanitize applies guardrails to demo configuration values.
func (d *DemoConfig) Sanitize() {
	d.Password = strings.TrimSpace(d.Password)
	if d.Password == "" {
		d.Password = "demo123"
	}
	d.Region = strings.ToUpper(strings.TrimSpace(d.Region))
	if d.Region == "" {
		d.Region = "IN"
	}
	if d.LoginDelay < 0 {
		d.LoginDelay = 0
	}
	if d.SignupDelay < 0 {
		d.SignupDelay = 0
	}
}
