// Package metrics exposes Prometheus instrumentation for orders, rate
// lookups and Telegram handlers.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

const namespace = "exchangebot"

// Metrics holds every collector of the bot on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	OrdersCreatedTotal    *prometheus.CounterVec
	OrdersSourceAmount    *prometheus.CounterVec
	OrderTransitionsTotal *prometheus.CounterVec
	OrderRejectionsTotal  *prometheus.CounterVec
	RateLookupsTotal      *prometheus.CounterVec
	RateLookupDuration    *prometheus.HistogramVec
	HandlerUpdatesTotal   *prometheus.CounterVec
	HandlerDuration       *prometheus.HistogramVec
}

// New registers the collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OrdersCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Orders created, by direction, route and fee tier.",
			},
			[]string{"direction", "pair", "fee_tier"},
		),
		OrdersSourceAmount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_source_amount_total",
				Help:      "Sum of source amounts of created orders, by source currency.",
			},
			[]string{"currency"},
		),
		OrderTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_transitions_total",
				Help:      "Order status changes.",
			},
			[]string{"from", "to"},
		),
		OrderRejectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_rejections_total",
				Help:      "Rejected order operations, by operation and error code.",
			},
			[]string{"op", "code"},
		),
		RateLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_lookups_total",
				Help:      "Rate resolutions, by route, outcome and whether a bridge was used.",
			},
			[]string{"pair", "outcome", "bridged"},
		),
		RateLookupDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_lookup_duration_seconds",
				Help:      "Rate resolution latency.",
				Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10),
			},
			[]string{"outcome"},
		),
		HandlerUpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tg_updates_total",
				Help:      "Handled Telegram updates, by handler and outcome.",
			},
			[]string{"handler", "outcome"},
		),
		HandlerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tg_handler_duration_seconds",
				Help:      "Telegram handler latency.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"handler"},
		),
	}
}

// ObserveRate records one rate resolution.
func (m *Metrics) ObserveRate(pair, outcome string, bridged bool, took time.Duration) {
	b := "false"
	if bridged {
		b = "true"
	}
	m.RateLookupsTotal.WithLabelValues(pair, outcome, b).Inc()
	m.RateLookupDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// OrderCreated records a persisted order.
func (m *Metrics) OrderCreated(o *exchange.Order) {
	m.OrdersCreatedTotal.WithLabelValues(string(o.Direction), exchange.RouteKey(o.Source, o.Target), string(o.FeeTier)).Inc()
	amount, _ := o.SourceAmount.Float64()
	m.OrdersSourceAmount.WithLabelValues(o.Source.String()).Add(amount)
}

// OrderTransitioned records a status change.
func (m *Metrics) OrderTransitioned(from, to exchange.Status) {
	m.OrderTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

// OrderRejected records a failed order operation.
func (m *Metrics) OrderRejected(op, code string) {
	m.OrderRejectionsTotal.WithLabelValues(op, code).Inc()
}

// ObserveHandler records one handled Telegram update.
func (m *Metrics) ObserveHandler(handler, outcome string, took time.Duration) {
	m.HandlerUpdatesTotal.WithLabelValues(handler, outcome).Inc()
	m.HandlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, logger.CompMetrics, "metrics.listen", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error(ctx, logger.CompMetrics, "metrics.listen",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
