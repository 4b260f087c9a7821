// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhaopengme/transclaw/pkg/logger"
)

var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transclaw_events_total",
		Help: "Inbound events dispatched, by route.",
	}, []string{"route"})

	DuplicateEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclaw_duplicate_events_total",
		Help: "Inbound events skipped because their update id was already seen.",
	})

	HandlerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transclaw_handler_failures_total",
		Help: "Events whose handler returned an error or panicked, by route.",
	}, []string{"route"})

	FileCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclaw_file_cache_hits_total",
		Help: "Photo events answered from the file result cache.",
	})

	Extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transclaw_extractions_total",
		Help: "Image extractions performed, by outcome.",
	}, []string{"outcome"})

	TransportRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transclaw_transport_retries_total",
		Help: "Transport calls retried after a failure, by operation.",
	}, []string{"op"})

	TransportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transclaw_transport_failures_total",
		Help: "Transport calls that failed after all attempts, by operation.",
	}, []string{"op"})

	PollFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transclaw_poll_failures_total",
		Help: "Poll loop iterations that ended in a network pause.",
	})
)

func Register() {
	prometheus.MustRegister(
		EventsTotal, DuplicateEvents, HandlerFailures,
		FileCacheHits, Extractions,
		TransportRetries, TransportFailures, PollFailures,
	)
}

// Handler serves /metrics from the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.InfoCF("metrics", "Metrics endpoint listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("metrics", "Metrics endpoint stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
}
