// Package metrics provides Prometheus metrics collection for coursesync.
package metrics

import (
	"strconv"
	"time"

	"github.com/artpar/coursesync/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coursesync"

// Collector holds all Prometheus metrics for coursesync.
type Collector struct {
	// Autosave metrics
	LocalWrites      *prometheus.CounterVec
	RemoteWrites     *prometheus.CounterVec
	RemoteDuration   *prometheus.HistogramVec
	DiffSkips        prometheus.Counter
	SlugConflicts    *prometheus.CounterVec
	ValidationBlocks *prometheus.CounterVec

	// Registry metrics
	RegistryCourses prometheus.Gauge

	// Authority server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		LocalWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_writes_total",
				Help:      "Local draft writes by result",
			},
			[]string{"result"},
		),
		RemoteWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_writes_total",
				Help:      "Remote authority calls by operation and result",
			},
			[]string{"op", "result"},
		),
		RemoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_duration_seconds",
				Help:      "Remote authority call duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		DiffSkips: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diff_skips_total",
				Help:      "Remote autosaves skipped because nothing changed",
			},
		),
		SlugConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slug_conflicts_total",
				Help:      "Slug conflicts by outcome",
			},
			[]string{"outcome"},
		),
		ValidationBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_blocks_total",
				Help:      "Remote writes blocked by validation issues",
			},
			[]string{"op"},
		),
		RegistryCourses: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_courses",
				Help:      "Number of courses held in the registry",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Authority API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Authority API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// LocalWrite records a local draft write.
func (c *Collector) LocalWrite(ok bool) {
	c.LocalWrites.WithLabelValues(result(ok)).Inc()
}

// RemoteWrite records a remote call and its latency.
func (c *Collector) RemoteWrite(op string, ok bool, d time.Duration) {
	c.RemoteWrites.WithLabelValues(op, result(ok)).Inc()
	c.RemoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// DiffSkipped records a remote autosave skipped by the diff engine.
func (c *Collector) DiffSkipped() {
	c.DiffSkips.Inc()
}

// SlugConflict records a slug conflict outcome ("resolved" or "failed").
func (c *Collector) SlugConflict(outcome string) {
	c.SlugConflicts.WithLabelValues(outcome).Inc()
}

// ValidationBlocked records a write refused by validation.
func (c *Collector) ValidationBlocked(op string) {
	c.ValidationBlocks.WithLabelValues(op).Inc()
}

// RegistrySize sets the registry gauge.
func (c *Collector) RegistrySize(n int) {
	c.RegistryCourses.Set(float64(n))
}

// Request records an authority API request.
func (c *Collector) Request(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status into "2xx", "4xx" and so on, which
// keeps label cardinality bounded.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

var _ ports.SyncMetrics = (*Collector)(nil)
