// Package observability wires prometheus metrics and OpenTelemetry
// tracing around the client façade and transport driver. Neither the
// engine core nor the frame/type codecs import this package directly;
// they only expose hooks, and it is the façade that turns those hooks
// into counters and spans.
package observability

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig toggles the embedded metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

var (
	metricsEnabled int32

	framesSentTotal     *prometheus.CounterVec
	framesReceivedTotal *prometheus.CounterVec
	deliveriesSettled   *prometheus.CounterVec
	sessionStallsTotal  *prometheus.CounterVec
	sendLatencySeconds  *prometheus.HistogramVec

	httpSrv *http.Server
)

// MetricsEnabled reports whether InitMetrics registered and started
// the collectors; IncFrame/etc are safe no-ops before that.
func MetricsEnabled() bool {
	return atomic.LoadInt32(&metricsEnabled) == 1
}

// InitMetrics registers the collectors and, if cfg.Addr is set,
// starts an HTTP server exposing them. The returned func stops that
// server; callers defer it during shutdown.
func InitMetrics(cfg MetricsConfig, l *slog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	atomic.StoreInt32(&metricsEnabled, 1)

	framesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amqp10_frames_sent_total",
		Help: "Frames written to the transport, by performative name.",
	}, []string{"performative"})
	framesReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amqp10_frames_received_total",
		Help: "Frames ingested from the transport, by performative name.",
	}, []string{"performative"})
	deliveriesSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amqp10_deliveries_settled_total",
		Help: "Deliveries settled, by role (sender/receiver) and outcome.",
	}, []string{"role", "outcome"})
	sessionStallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amqp10_session_window_stalls_total",
		Help: "Times a send was queued because the remote incoming window was exhausted.",
	}, []string{"session"})
	sendLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amqp10_send_latency_seconds",
		Help:    "Time between Sender.Send being called and the engine taking the transfer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"link"})
	prometheus.MustRegister(framesSentTotal, framesReceivedTotal, deliveriesSettled, sessionStallsTotal, sendLatencySeconds)

	if cfg.Addr == "" {
		return func(context.Context) error { return nil }, nil
	}

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	httpSrv = &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Error("metrics http server", "err", err)
		}
	}()
	l.Info("metrics server started", "addr", cfg.Addr, "path", path)

	return func(ctx context.Context) error { return httpSrv.Shutdown(ctx) }, nil
}

// IncFrameSent counts a frame leaving the driver, by performative name.
func IncFrameSent(performative string) {
	if !MetricsEnabled() {
		return
	}
	framesSentTotal.WithLabelValues(performative).Inc()
}

// IncFrameReceived counts a frame the driver fed into the engine.
func IncFrameReceived(performative string) {
	if !MetricsEnabled() {
		return
	}
	framesReceivedTotal.WithLabelValues(performative).Inc()
}

// IncDeliverySettled counts a delivery reaching a terminal settlement.
func IncDeliverySettled(role, outcome string) {
	if !MetricsEnabled() {
		return
	}
	deliveriesSettled.WithLabelValues(role, outcome).Inc()
}

// IncSessionStall counts a send queued behind an exhausted window. The
// engine reports no stall event and nothing in this module calls it, so
// the counter stays at zero unless an embedding application calls it.
func IncSessionStall(session string) {
	if !MetricsEnabled() {
		return
	}
	sessionStallsTotal.WithLabelValues(session).Inc()
}

// ObserveSendLatency records how long a send sat before it was framed.
func ObserveSendLatency(link string, d time.Duration) {
	if !MetricsEnabled() {
		return
	}
	sendLatencySeconds.WithLabelValues(link).Observe(d.Seconds())
}
