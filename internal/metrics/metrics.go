// Package metrics exposes process metrics for a chat session in Prometheus
// format. Collectors register with the default registry at init.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_turns_total",
			Help: "Total number of chat turns by outcome.",
		},
		[]string{"result"},
	)
	agentStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_agent_steps_total",
			Help: "Total number of agent reasoning steps.",
		},
	)
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_tool_calls_total",
			Help: "Total number of SQL tool invocations.",
		},
		[]string{"tool", "outcome"},
	)
	llmRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_llm_request_duration_seconds",
			Help:    "Language model request latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)
	seededRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_seeded_rows_total",
			Help: "Total number of synthetic rows committed.",
		},
	)
	dbConfigureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_db_configure_total",
			Help: "Database configuration attempts by source kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		agentStepsTotal,
		toolCallsTotal,
		llmRequestDurationSeconds,
		seededRowsTotal,
		dbConfigureTotal,
	)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTurn counts a finished turn; result is tabular, freeform or error.
func ObserveTurn(result string) {
	turnsTotal.WithLabelValues(result).Inc()
}

func ObserveAgentStep() {
	agentStepsTotal.Inc()
}

func ObserveToolCall(tool string, err error) {
	toolCallsTotal.WithLabelValues(tool, outcome(err)).Inc()
}

func ObserveLLMRequest(elapsed time.Duration, err error) {
	llmRequestDurationSeconds.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
}

func ObserveSeeded(rows int) {
	if rows > 0 {
		seededRowsTotal.Add(float64(rows))
	}
}

func ObserveConfigure(kind string, err error) {
	dbConfigureTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
