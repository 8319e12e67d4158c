package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus adapts Sink calls onto lazily registered Prometheus vectors.
// Label names are fixed by the first observation of each metric; later calls
// with a different tag set are dropped.
type Prometheus struct {
	namespace string
	reg       prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*labeled[*prometheus.CounterVec]
	gauges     map[string]*labeled[*prometheus.GaugeVec]
	histograms map[string]*labeled[*prometheus.HistogramVec]
}

type labeled[V any] struct {
	vec    V
	labels []string
}

var _ Sink = (*Prometheus)(nil)

// NewPrometheus creates a sink registering into reg under namespace.
func NewPrometheus(namespace string, reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Prometheus{
		namespace:  sanitizeName(namespace),
		reg:        reg,
		counters:   make(map[string]*labeled[*prometheus.CounterVec]),
		gauges:     make(map[string]*labeled[*prometheus.GaugeVec]),
		histograms: make(map[string]*labeled[*prometheus.HistogramVec]),
	}
}

// Count adds value to a counter named <name>_total.
func (p *Prometheus) Count(name string, value int64, tags map[string]string) {
	if p == nil || value < 0 {
		return
	}
	labels := labelNames(tags)
	p.mu.Lock()
	entry, ok := p.counters[name]
	if !ok {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name) + "_total",
			Help:      "Count of " + name + ".",
		}, labels)
		entry = &labeled[*prometheus.CounterVec]{vec: registerOrExisting(p.reg, vec), labels: labels}
		p.counters[name] = entry
	}
	p.mu.Unlock()

	if !sameLabels(entry.labels, labels) {
		return
	}
	if c, err := entry.vec.GetMetricWith(labelValues(tags)); err == nil {
		c.Add(float64(value))
	}
}

// Gauge sets a gauge named <name>.
func (p *Prometheus) Gauge(name string, value float64, tags map[string]string) {
	if p == nil {
		return
	}
	labels := labelNames(tags)
	p.mu.Lock()
	entry, ok := p.gauges[name]
	if !ok {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name),
			Help:      "Current value of " + name + ".",
		}, labels)
		entry = &labeled[*prometheus.GaugeVec]{vec: registerOrExisting(p.reg, vec), labels: labels}
		p.gauges[name] = entry
	}
	p.mu.Unlock()

	if !sameLabels(entry.labels, labels) {
		return
	}
	if g, err := entry.vec.GetMetricWith(labelValues(tags)); err == nil {
		g.Set(value)
	}
}

// Timing observes a histogram named <name>_seconds.
func (p *Prometheus) Timing(name string, value time.Duration, tags map[string]string) {
	if p == nil {
		return
	}
	labels := labelNames(tags)
	p.mu.Lock()
	entry, ok := p.histograms[name]
	if !ok {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      sanitizeName(name) + "_seconds",
			Help:      "Duration of " + name + ".",
			Buckets:   prometheus.DefBuckets,
		}, labels)
		entry = &labeled[*prometheus.HistogramVec]{vec: registerOrExisting(p.reg, vec), labels: labels}
		p.histograms[name] = entry
	}
	p.mu.Unlock()

	if !sameLabels(entry.labels, labels) {
		return
	}
	if o, err := entry.vec.GetMetricWith(labelValues(tags)); err == nil {
		o.Observe(value.Seconds())
	}
}

// registerOrExisting registers c, returning the already registered collector
// when an identical one exists.
func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		if n := sanitizeName(k); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(tags map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(tags))
	for k, v := range tags {
		if n := sanitizeName(k); n != "" {
			out[n] = v
		}
	}
	return out
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sanitizeName maps a dotted metric or tag name onto the Prometheus charset.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
