package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	icache "QuantPulse/internal/service/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoPrice(t *testing.T) {
	assert.Equal(t, 2950.0, DemoPrice("reliance"))
	assert.Equal(t, 2950.0, DemoPrice("RELIANCE.NS"))
	assert.Equal(t, 485.0, DemoPrice("ITC"))
	assert.Equal(t, 1000.0, DemoPrice("NOSUCH"))
}

func TestQuoteResolverOrder(t *testing.T) {
	m := newRecordingMetrics()
	r := NewQuoteResolver(icache.NewTTLCache(), time.Minute, stubQuotes{price: 2460}, m, nil)

	q, err := r.Quote(context.Background(), "reliance")
	require.NoError(t, err)
	assert.Equal(t, 2460.0, q.Price)
	assert.Equal(t, 2460.0, m.lastPrice["RELIANCE"])

	r.Observe(&models.Trade{Symbol: "reliance", Price: 2471.5, Timestamp: time.Now().Unix()})
	q, err = r.Quote(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, 2471.5, q.Price)
	assert.Equal(t, "stream", q.Source)
}

func TestQuoteResolverFallsBackToDemo(t *testing.T) {
	m := newRecordingMetrics()
	r := NewQuoteResolver(nil, 0, stubQuotes{err: errors.New("429")}, m, nil)

	q, err := r.Quote(context.Background(), " sbin ")
	require.NoError(t, err)
	assert.Equal(t, 850.0, q.Price)
	assert.Equal(t, "demo", q.Source)
	assert.Equal(t, 1, m.errorCount("quote_remote"))

	r = NewQuoteResolver(nil, 0, nil, nil, nil)
	q, err = r.Quote(context.Background(), "LT")
	require.NoError(t, err)
	assert.Equal(t, 3650.0, q.Price)
}

func TestQuoteResolverIgnoresBadTrades(t *testing.T) {
	r := NewQuoteResolver(nil, 0, nil, nil, nil)
	r.Observe(nil)
	r.Observe(&models.Trade{Symbol: "TCS", Price: 0})

	q, err := r.Quote(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "demo", q.Source)
}
