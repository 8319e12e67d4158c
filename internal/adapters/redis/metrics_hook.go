package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Dev-16-apk/breedify/internal/observability/metrics"
	"github.com/redis/go-redis/v9"
)

// MetricsHook implements redis.Hook to report every command as a store operation.
type MetricsHook struct {
	Sink metrics.Sink
	now  func() time.Time
}

var _ redis.Hook = (*MetricsHook)(nil)

// NewMetricsHook returns a hook emitting to sink.
func NewMetricsHook(sink metrics.Sink) *MetricsHook {
	return &MetricsHook{Sink: sink, now: time.Now}
}

// DialHook counts failed connection attempts.
func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && h.Sink != nil {
			h.Sink.Count("store.redis.dial_error", 1, nil)
		}
		return conn, err
	}
}

// ProcessHook times each command. redis.Nil is a miss, not a failure.
func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := h.clock()
		err := next(ctx, cmd)
		reported := err
		if errors.Is(err, redis.Nil) {
			reported = nil
		}
		metrics.EmitStoreOp(h.Sink, "redis", cmd.Name(), h.clock().Sub(start), reported)
		return err
	}
}

// ProcessPipelineHook times a pipeline as a single operation.
func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := h.clock()
		err := next(ctx, cmds)
		metrics.EmitStoreOp(h.Sink, "redis", "pipeline", h.clock().Sub(start), err)
		return err
	}
}

func (h *MetricsHook) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}
