package finnhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTrades(t *testing.T) {
	frame := []byte(`{"type":"trade","data":[{"s":"NSE:RELIANCE","p":2951.5,"v":10,"t":1700000000123},{"s":"TCS.NS","p":0,"v":1,"t":1700000000000}]}`)
	trades := decodeTrades(frame)
	require.Len(t, trades, 1)
	assert.Equal(t, "RELIANCE", trades[0].Symbol)
	assert.Equal(t, int64(1700000000), trades[0].Timestamp)
	assert.InDelta(t, 2951.5, trades[0].Price, 1e-9)

	assert.Empty(t, decodeTrades([]byte(`{"type":"ping"}`)))
	assert.Empty(t, decodeTrades([]byte(`not json`)))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "INFY", NormalizeSymbol(" infy.ns "))
	assert.Equal(t, "AAPL", NormalizeSymbol("AAPL"))
	assert.Equal(t, "SBIN", NormalizeSymbol("BSE:SBIN.BO"))
}
