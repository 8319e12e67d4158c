package metrics

import "time"

// Sink describes the minimal interface required to emit StatsD-style metrics.
// Both the statsd client and the Prometheus adapter implement it.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Fanout forwards every metric to each non-nil sink.
type Fanout []Sink

var _ Sink = Fanout(nil)

// NewFanout drops nil sinks and returns nil when none remain.
func NewFanout(sinks ...Sink) Sink {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

func (f Fanout) Count(name string, value int64, tags map[string]string) {
	for _, s := range f {
		s.Count(name, value, CloneTags(tags))
	}
}

func (f Fanout) Gauge(name string, value float64, tags map[string]string) {
	for _, s := range f {
		s.Gauge(name, value, CloneTags(tags))
	}
}

func (f Fanout) Timing(name string, value time.Duration, tags map[string]string) {
	for _, s := range f {
		s.Timing(name, value, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
