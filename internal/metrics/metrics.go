// Package metrics exposes run statistics in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several runs (and tests) never collide.
type Collector struct {
	Registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	bytes    prometheus.Counter
	users    prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		Registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labload",
			Name:      "requests_total",
			Help:      "Requests issued by virtual users, by name, status code and outcome.",
		}, []string{"name", "code", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labload",
			Name:      "response_seconds",
			Help:      "Response time of each request.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 15),
		}, []string{"name", "outcome"}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "labload",
			Name:      "response_bytes_total",
			Help:      "Response body bytes received.",
		}),
		users: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "labload",
			Name:      "users",
			Help:      "Virtual users currently running.",
		}),
	}
}

func (c *Collector) Observe(name string, status int, success bool, bytes int64, elapsed time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.requests.WithLabelValues(name, strconv.Itoa(status), outcome).Inc()
	c.latency.WithLabelValues(name, outcome).Observe(elapsed.Seconds())
	if bytes > 0 {
		c.bytes.Add(float64(bytes))
	}
}

func (c *Collector) UserStarted() { c.users.Inc() }
func (c *Collector) UserStopped() { c.users.Dec() }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
