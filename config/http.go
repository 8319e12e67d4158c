package config

// HTTPConfig contains configuration for the local session HTTP surface.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8090"`

	// AllowedOrigins lists browser origins accepted on the websocket endpoint.
	// Empty means same-origin only.
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`

	// AuthRatePerMinute limits login and signup attempts per client.
	AuthRatePerMinute int `env:"HTTP_AUTH_RATE_PER_MINUTE" envDefault:"20"`
	// AuthBurst is the token bucket size for login and signup attempts.
	AuthBurst int `env:"HTTP_AUTH_BURST" envDefault:"5"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8090"
	}
	if h.AuthRatePerMinute < 0 {
		h.AuthRatePerMinute = 0
	}
	if h.AuthBurst < 1 {
		h.AuthBurst = 1
	}
}
