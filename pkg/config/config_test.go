package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, ModeLocal, c.Ensemble.Mode)
	assert.Equal(t, 3*time.Second, c.Ensemble.Timeout)
	assert.Equal(t, 0.5, c.Ensemble.Weights.Quant)
	assert.Equal(t, 0.3, c.Ensemble.Weights.Topology)
	assert.Equal(t, 0.2, c.Ensemble.Weights.Sentiment)
	assert.Equal(t, 0.1, c.Ensemble.DirectionThresholdPct)
	assert.Equal(t, "memory", c.Backend.Type)
	assert.Equal(t, "data/graph.json", c.Agents.Topology.GraphPath)
	assert.Equal(t, ".NS", c.Quotes.Yahoo.Suffix)
	assert.True(t, c.RateLimit.Enabled)
	assert.Contains(t, c.Server.CORSOrigins, "http://localhost:5173")
	assert.Len(t, c.Server.CORSOrigins, 8)
}

func TestLoadFileKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
  cors_origins: ["https://quantpulse.example"]
rate_limit:
  enabled: false
ensemble:
  timeout: 500ms
  weights:
    quant: 0.6
    topology: 0.2
    sentiment: 0.2
backend:
  type: sqlite
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, []string{"https://quantpulse.example"}, c.Server.CORSOrigins)
	assert.False(t, c.RateLimit.Enabled)
	assert.Equal(t, 500*time.Millisecond, c.Ensemble.Timeout)
	assert.Equal(t, 0.6, c.Ensemble.Weights.Quant)
	assert.Equal(t, "sqlite", c.Backend.Type)
	assert.Equal(t, 15*time.Second, c.Server.WriteTimeout)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"remote without url":   "ensemble:\n  mode: remote\n",
		"unknown mode":         "ensemble:\n  mode: magic\n",
		"negative weight":      "ensemble:\n  weights:\n    quant: -1\n",
		"penalty out of range": "ensemble:\n  conflict_penalty: 2\n",
		"unknown cache":        "cache:\n  type: disk\n",
		"kafka without broker": "backend:\n  type: kafka\n",
		"clickhouse disabled":  "backend:\n  type: clickhouse\n",
		"finnhub without key":  "finnhub:\n  enabled: true\n  symbols: [AAPL]\n",
		"bad port":             "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PORT", "9200")
	t.Setenv("ENSEMBLE_UPSTREAM_URL", "http://agents:8001")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BACKEND", "kafka")
	t.Setenv("SYMBOLS", "AAPL,MSFT")
	t.Setenv("FINNHUB_API_KEY", "secret")

	c, err := LoadWithEnv("")
	require.NoError(t, err)

	assert.Equal(t, 9200, c.Server.Port)
	assert.Equal(t, ModeRemote, c.Ensemble.Mode)
	assert.Equal(t, "http://agents:8001", c.Ensemble.UpstreamURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "kafka", c.Backend.Type)
	assert.True(t, c.Finnhub.Enabled)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Finnhub.Symbols)

	t.Setenv("PORT", "eighty")
	_, err = LoadWithEnv("")
	assert.Error(t, err)
}
