package metrics

import (
	"context"
	"errors"
	"time"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics tracks per-agent latency and failures.
type AgentMetrics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	f := promauto.With(reg)
	return &AgentMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quantpulse",
				Subsystem: "agent",
				Name:      "latency_seconds",
				Help:      "Latency of agent signal computation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quantpulse",
				Subsystem: "agent",
				Name:      "errors_total",
				Help:      "Agent failures by kind",
			},
			[]string{"agent", "kind"},
		),
	}
}

// Instrument wraps src so every Compute call is timed and failures are counted.
func (m *AgentMetrics) Instrument(src domsvc.SignalSource) domsvc.SignalSource {
	if m == nil || src == nil {
		return src
	}
	return &instrumented{next: src, m: m}
}

type instrumented struct {
	next domsvc.SignalSource
	m    *AgentMetrics
}

func (i *instrumented) Kind() models.AgentKind { return i.next.Kind() }

func (i *instrumented) Compute(ctx context.Context, symbol string, price float64) (models.Signal, error) {
	start := time.Now()
	sig, err := i.next.Compute(ctx, symbol, price)
	agent := string(i.next.Kind())
	i.m.latency.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	if err != nil {
		i.m.errors.WithLabelValues(agent, errorKind(err)).Inc()
	}
	return sig, err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, models.ErrMalformedUpstream):
		return "malformed"
	default:
		return "unavailable"
	}
}
