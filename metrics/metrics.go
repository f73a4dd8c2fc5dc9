// Package metrics exposes scheduler, machine and tick-loop activity as
// Prometheus metrics.
//
// A Collector is an observer for all three layers:
//
//	scheduler.WithObserver(c)     task runs by status, task latency, one-shot runs
//	tickfsm.WithObserver(c)       transitions by machine, from and to
//	realtime.WithTickObserver(c)  ticks, tick latency, events delivered
//
// Metrics are registered on the Collector's own registry, never the
// process-wide default, so several collectors can coexist in one test binary.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/scheduler"
)

const namespace = "tickfsm"

// Collector records Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	tasksFired   *prometheus.CounterVec
	taskLatency  prometheus.Histogram
	delayedFired prometheus.Counter

	transitions *prometheus.CounterVec

	ticks       prometheus.Counter
	tickLatency prometheus.Histogram
	tickEvents  prometheus.Counter
	queueDepth  prometheus.Gauge
}

// latencyBuckets spans 1µs to ~1s; tasks and ticks are expected to be short.
var latencyBuckets = prometheus.ExponentialBuckets(1e-6, 4, 11)

// NewCollector creates a collector with its own registry. Go runtime and
// process collectors are registered alongside.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tasksFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_task_runs_total",
			Help:      "Periodic task executions by reported status",
		}, []string{"status"}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_task_duration_seconds",
			Help:      "Periodic task execution time in seconds",
			Buckets:   latencyBuckets,
		}),
		delayedFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_delayed_runs_total",
			Help:      "One-shot task executions",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fsm_transitions_total",
			Help:      "Completed state transitions",
		}, []string{"machine", "from", "to"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_ticks_total",
			Help:      "Completed runtime ticks",
		}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "runtime_tick_duration_seconds",
			Help:      "Time spent processing one tick in seconds",
			Buckets:   latencyBuckets,
		}),
		tickEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_events_delivered_total",
			Help:      "Events delivered to attached targets",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runtime_queue_depth",
			Help:      "Events waiting for the next tick",
		}),
	}

	c.registry.MustRegister(
		c.tasksFired,
		c.taskLatency,
		c.delayedFired,
		c.transitions,
		c.ticks,
		c.tickLatency,
		c.tickEvents,
		c.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// TaskFired implements scheduler.Observer.
func (c *Collector) TaskFired(_ int, status scheduler.ExecStatus, took time.Duration) {
	c.tasksFired.WithLabelValues(status.String()).Inc()
	c.taskLatency.Observe(took.Seconds())
}

// DelayedFired implements scheduler.Observer.
func (c *Collector) DelayedFired(time.Duration) {
	c.delayedFired.Inc()
}

// OnTransition implements tickfsm.Observer.
func (c *Collector) OnTransition(rec tickfsm.TransitionRecord) {
	c.transitions.WithLabelValues(rec.Machine, fmt.Sprint(rec.From), fmt.Sprint(rec.To)).Inc()
}

// TickCompleted implements realtime.TickObserver.
func (c *Collector) TickCompleted(_ uint64, events int, took time.Duration) {
	c.ticks.Inc()
	c.tickEvents.Add(float64(events))
	c.tickLatency.Observe(took.Seconds())
}

// SetQueueDepth records the number of queued events.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
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

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
