// Package metrics exports cycle events as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

// Collector holds all Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	EventsTotal         *prometheus.CounterVec
	SubscriberFailures  *prometheus.CounterVec
	PhaseDuration       *prometheus.HistogramVec
	ActivitiesCompleted *prometheus.CounterVec
}

// NewCollector registers the metrics on a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	collector := &Collector{
		registry: registry,
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkbreak_events_total",
				Help: "Total number of published cycle events",
			},
			[]string{"kind"},
		),
		SubscriberFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkbreak_subscriber_failures_total",
				Help: "Total number of failed event deliveries",
			},
			[]string{"subscriber"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blinkbreak_phase_duration_seconds",
				Help:    "Measured duration of completed phases and activities",
				Buckets: []float64{5, 10, 20, 30, 60, 300, 600, 1200, 1800, 3600},
			},
			[]string{"phase"},
		),
		ActivitiesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkbreak_activities_completed_total",
				Help: "Total number of completed break activities",
			},
			[]string{"activity"},
		),
	}

	// Every series is exported from the start, at zero.
	for _, kind := range events.Kinds() {
		collector.EventsTotal.WithLabelValues(string(kind))
	}
	for _, kind := range model.ActivityKinds() {
		collector.ActivitiesCompleted.WithLabelValues(string(kind))
	}
	return collector
}

// Registry returns the registry backing the collector.
func (collector *Collector) Registry() *prometheus.Registry {
	return collector.registry
}

// Attach subscribes the collector to every event on bus.
func (collector *Collector) Attach(bus *events.Bus) func() {
	return bus.Subscribe("metrics", collector.Observe)
}

// Observe records event.
func (collector *Collector) Observe(event events.Event) error {
	collector.EventsTotal.WithLabelValues(string(event.Kind)).Inc()
	switch event.Kind {
	case events.KindWorkComplete:
		collector.PhaseDuration.WithLabelValues("work").Observe(event.DurationSeconds)
	case events.KindBreakComplete:
		collector.PhaseDuration.WithLabelValues("break").Observe(event.DurationSeconds)
	case events.KindActivityComplete:
		collector.PhaseDuration.WithLabelValues("activity").Observe(event.DurationSeconds)
		collector.ActivitiesCompleted.WithLabelValues(event.Meta(events.MetaActivity)).Inc()
	}
	return nil
}

// RecordFailure counts a failed delivery. Use it as the bus failure hook.
func (collector *Collector) RecordFailure(failure events.DeliveryError) {
	collector.SubscriberFailures.WithLabelValues(failure.Subscriber).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (collector *Collector) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logger.Info("metrics endpoint listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}
