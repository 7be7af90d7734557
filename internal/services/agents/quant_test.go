package agents

import (
	"context"
	"errors"
	"testing"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	closes []float64
	err    error
}

func (f fakeHistory) GetLatestNCandles(_ context.Context, symbol string, n int) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Candle, 0, len(f.closes))
	for _, c := range f.closes {
		out = append(out, models.Candle{Symbol: symbol, Close: c})
	}
	return out, nil
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestQuantAgentFallbackOnShortHistory(t *testing.T) {
	a := NewQuantAgent(fakeHistory{closes: ramp(10, 100, 1)}, 0.5, 60, nil)
	sig, err := a.Compute(context.Background(), "TCS", 4200)
	require.NoError(t, err)

	q := sig.(models.QuantSignal)
	assert.InDelta(t, 4284, q.BaseForecast, 1e-9)
	assert.Equal(t, models.DirectionUp, q.Direction)
	assert.Equal(t, 65.0, q.Confidence)
	assert.Equal(t, 2.0, q.Volatility)
	assert.Equal(t, 0.5, q.TrendStrength)
	assert.Equal(t, 0.5, q.Weight)
}

func TestQuantAgentFallbackOnHistoryError(t *testing.T) {
	a := NewQuantAgent(fakeHistory{err: errors.New("down")}, 0.5, 60, nil)
	sig, err := a.Compute(context.Background(), "TCS", 100)
	require.NoError(t, err)
	assert.InDelta(t, 102, sig.(models.QuantSignal).BaseForecast, 1e-9)
}

func TestQuantAgentCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewQuantAgent(fakeHistory{err: context.Canceled}, 0.5, 60, nil)
	_, err := a.Compute(ctx, "TCS", 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuantAgentUptrend(t *testing.T) {
	a := NewQuantAgent(nil, 0.5, 60, nil)
	closes := ramp(30, 100, 1) // 100..129

	q := a.Forecast(closes, 129)
	sma20 := 119.5 // mean of 110..129
	sma5 := 127.0  // mean of 125..129
	trend := (sma5 - sma20) / sma20
	momentum := (129 - sma5) / sma5

	assert.Equal(t, models.DirectionUp, q.Direction)
	assert.InDelta(t, 129*(1+trend*(1+momentum)), q.BaseForecast, 1e-9)
	assert.InDelta(t, 1.0, q.TrendStrength, 1e-12)
	assert.InDelta(t, 90.0, q.Confidence, 1e-9)
	assert.Greater(t, q.Volatility, 0.0)
}

func TestQuantAgentDowntrend(t *testing.T) {
	a := NewQuantAgent(nil, 0.5, 60, nil)
	q := a.Forecast(ramp(30, 200, -1), 171)
	assert.Equal(t, models.DirectionDown, q.Direction)
	assert.Less(t, q.BaseForecast, 171.0)
}

func TestQuantAgentFlatIsSideways(t *testing.T) {
	a := NewQuantAgent(nil, 0.5, 60, nil)
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	q := a.Forecast(closes, 100)
	assert.Equal(t, models.DirectionSideways, q.Direction)
	assert.InDelta(t, 100, q.BaseForecast, 1e-9)
	assert.InDelta(t, 50, q.Confidence, 1e-9)
	assert.Zero(t, q.Volatility)
}
