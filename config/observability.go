package config

import "strings"

const defaultObservabilityName = "breedify"

// ObservabilityConfig groups configuration that controls metrics emission.
type ObservabilityConfig struct {
	Metrics    ObservabilityMetricsConfig
	Prometheus PrometheusConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Prometheus.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool     `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string   `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string   `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"breedify"`
	Tags          []string `env:"OBSERVABILITY_METRICS_TAGS"           envSeparator:","`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if c.Prefix = strings.TrimSpace(c.Prefix); c.Prefix == "" {
		c.Prefix = defaultObservabilityName
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// GlobalTags parses "key:value" entries, skipping malformed ones.
func (c *ObservabilityMetricsConfig) GlobalTags() map[string]string {
	out := make(map[string]string, len(c.Tags))
	for _, t := range c.Tags {
		k, v, ok := strings.Cut(strings.TrimSpace(t), ":")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// PrometheusConfig controls the /metrics endpoint.
type PrometheusConfig struct {
	Enabled   bool   `env:"OBSERVABILITY_PROMETHEUS_ENABLED"   envDefault:"false"`
	Namespace string `env:"OBSERVABILITY_PROMETHEUS_NAMESPACE" envDefault:"breedify"`
}

// Sanitize normalises the namespace.
func (c *PrometheusConfig) Sanitize() {
	if c.Namespace = strings.TrimSpace(c.Namespace); c.Namespace == "" {
		c.Namespace = defaultObservabilityName
	}
}
