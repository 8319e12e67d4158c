package metrics

import (
	"time"

	obserrors "github.com/Dev-16-apk/breedify/internal/observability/errors"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultFallback = "fallback"
)

// Session end reasons.
const (
	ReasonExplicit   = "explicit"
	ReasonInactivity = "inactivity"
	ReasonRestore    = "restore_failed"
)

// AuthMetric captures one login/signup/restore attempt.
type AuthMetric struct {
	Operation string // login, signup, restore
	Provider  string // remote, demo, or empty when no provider answered
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitAuthOutcome emits standardised auth outcome metrics.
func EmitAuthOutcome(sink Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Provider != "" {
		tags["provider"] = in.Provider
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.auth", 1, tags)
	if in.Duration > 0 {
		sink.Timing("session.auth.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSessionEnded records a logout and why it happened.
func EmitSessionEnded(sink Sink, reason string) {
	if sink == nil {
		return
	}
	sink.Count("session.ended", 1, map[string]string{"reason": reason})
}

// EmitActiveSession reports whether a session is currently active (1) or not (0).
func EmitActiveSession(sink Sink, active bool) {
	if sink == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	sink.Gauge("session.active", v, nil)
}

// EmitBreakerState records circuit breaker transitions for a dependency.
func EmitBreakerState(sink Sink, component, to string) {
	if sink == nil {
		return
	}
	sink.Count("breaker.transition", 1, map[string]string{"component": component, "to": to})
}

// EmitStoreOp records a key-value store operation.
func EmitStoreOp(sink Sink, backend, op string, d time.Duration, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"backend": backend, "op": op, "result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("store.op", 1, tags)
	sink.Timing("store.op.duration", d, CloneTags(tags))
}
