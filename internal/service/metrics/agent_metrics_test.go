package metrics

import (
	"context"
	"errors"
	"testing"

	"QuantPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	sig models.Signal
	err error
}

func (s stubSource) Kind() models.AgentKind { return models.AgentQuant }

func (s stubSource) Compute(context.Context, string, float64) (models.Signal, error) {
	return s.sig, s.err
}

func TestInstrumentPassesThrough(t *testing.T) {
	m := NewAgentMetrics(prometheus.NewRegistry())
	want := models.QuantSignal{BaseForecast: 100}
	src := m.Instrument(stubSource{sig: want})

	assert.Equal(t, models.AgentQuant, src.Kind())
	got, err := src.Compute(context.Background(), "TCS", 100)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, testutil.ToFloat64(m.errors.WithLabelValues("quant", "unavailable")))
}

func TestInstrumentCountsErrors(t *testing.T) {
	m := NewAgentMetrics(prometheus.NewRegistry())
	src := m.Instrument(stubSource{err: errors.New("down")})
	_, err := src.Compute(context.Background(), "TCS", 100)
	assert.Error(t, err)

	src = m.Instrument(stubSource{err: context.DeadlineExceeded})
	_, _ = src.Compute(context.Background(), "TCS", 100)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("quant", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("quant", "timeout")))
}

func TestInstrumentNilMetrics(t *testing.T) {
	var m *AgentMetrics
	src := stubSource{}
	assert.Equal(t, src, m.Instrument(src))
}
