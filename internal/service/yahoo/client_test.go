package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerSuffix(t *testing.T) {
	c := New(".NS", 10)
	assert.Equal(t, "RELIANCE.NS", c.ticker("reliance"))
	assert.Equal(t, "TCS.BO", c.ticker("TCS.BO"))
	assert.Equal(t, "^NSEI", c.ticker("^NSEI"))
	assert.Equal(t, "AAPL", New("", 10).ticker("aapl"))
}

func TestQuote(t *testing.T) {
	c := New(".NS", 100)
	var asked string
	c.getQuote = func(symbol string) (float64, error) {
		asked = symbol
		return 2950.5, nil
	}

	q, err := c.Quote(context.Background(), "reliance")
	require.NoError(t, err)
	assert.Equal(t, "RELIANCE.NS", asked)
	assert.Equal(t, "RELIANCE", q.Symbol)
	assert.Equal(t, "yahoo", q.Source)
	assert.InDelta(t, 2950.5, q.Price, 1e-9)

	c.getQuote = func(string) (float64, error) { return 0, nil }
	_, err = c.Quote(context.Background(), "X")
	assert.Error(t, err)

	c.getQuote = func(string) (float64, error) { return 0, errors.New("boom") }
	_, err = c.Quote(context.Background(), "X")
	assert.Error(t, err)
}

func TestQuoteHonoursContext(t *testing.T) {
	c := New("", 100)
	release := make(chan struct{})
	defer close(release)
	c.getQuote = func(string) (float64, error) {
		<-release
		return 1, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Quote(ctx, "SLOW")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetLatestNCandlesKeepsNewest(t *testing.T) {
	c := New("", 100)
	c.getBars = func(string, time.Time, time.Time) ([]models.Candle, error) {
		out := make([]models.Candle, 30)
		for i := range out {
			out[i] = models.Candle{Close: float64(100 + i)}
		}
		return out, nil
	}

	cs, err := c.GetLatestNCandles(context.Background(), "tcs", 5)
	require.NoError(t, err)
	require.Len(t, cs, 5)
	assert.Equal(t, 125.0, cs[0].Close)
	assert.Equal(t, 129.0, cs[4].Close)
	assert.Equal(t, "TCS", cs[0].Symbol)
}
