// Package metrics provides Prometheus collectors for Graph API dispatch.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the dispatch metrics of one client.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered (a second client on the same registry) are reused.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adsgraph",
				Name:      "requests_total",
				Help:      "Total number of Graph API requests dispatched",
			},
			[]string{"method", "status", "origin"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "adsgraph",
				Name:      "request_duration_seconds",
				Help:      "Graph API request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "origin"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adsgraph",
				Name:      "errors_total",
				Help:      "Failed Graph API requests by error kind and type",
			},
			[]string{"kind", "type"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "adsgraph",
				Name:      "requests_in_flight",
				Help:      "Number of Graph API requests currently in flight",
			},
		),
	}

	var err error
	c.RequestsTotal, err = register(reg, c.RequestsTotal)
	if err != nil {
		return nil, err
	}
	c.RequestDuration, err = register(reg, c.RequestDuration)
	if err != nil {
		return nil, err
	}
	c.ErrorsTotal, err = register(reg, c.ErrorsTotal)
	if err != nil {
		return nil, err
	}
	c.InFlight, err = register(reg, c.InFlight)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return col, err
	}
	return col, nil
}

// ObserveRequest records a completed exchange. status 0 means no response.
func (c *Collector) ObserveRequest(method, origin string, status int, d time.Duration) {
	if c == nil {
		return
	}
	st := "none"
	if status > 0 {
		st = strconv.Itoa(status)
	}
	c.RequestsTotal.WithLabelValues(method, st, origin).Inc()
	c.RequestDuration.WithLabelValues(method, origin).Observe(d.Seconds())
}

// ObserveError counts a failure by kind ("transport", "api", ...) and, for
// API errors, the normalized error type.
func (c *Collector) ObserveError(kind, errType string) {
	if c == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(kind, errType).Inc()
}

// Start marks a request in flight and returns the func that ends it.
func (c *Collector) Start() func() {
	if c == nil {
		return func() {}
	}
	c.InFlight.Inc()
	return c.InFlight.Dec
}
