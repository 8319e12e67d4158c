package bootstrap

import (
	"log/slog"
	"net/http"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/observability/metrics"
	"github.com/Dev-16-apk/breedify/internal/observability/statsd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// Sink fans out to every enabled backend; nil when metrics are off.
	Sink metrics.Sink
	// Handler serves /metrics when Prometheus is enabled.
	Handler http.Handler

	statsd *statsd.Client
}

// Close flushes and releases the statsd connection.
func (o ObservabilityContainer) Close() error {
	return o.statsd.Close()
}

// BuildObservability configures metrics adapters. Failing to reach the statsd
// agent is logged and leaves the remaining sinks in place.
func BuildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		out   ObservabilityContainer
		sinks []metrics.Sink
	)

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			Logger:     logger,
			GlobalTags: cfg.Metrics.GlobalTags(),
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.statsd = client
			sinks = append(sinks, client)
		}
	}

	if cfg.Prometheus.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sinks = append(sinks, metrics.NewPrometheus(cfg.Prometheus.Namespace, reg))
		out.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	out.Sink = metrics.NewFanout(sinks...)
	return out
}
