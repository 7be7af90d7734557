package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 4300 * 0.98 * 1.05 = 4424.7 against 4200: +5.35%.
const upstreamReply = `{
  "symbol": "TCS",
  "timestamp": "2025-01-01T00:00:00Z",
  "current_price": 4200,
  "weighted_prediction": 4424.7,
  "confidence_score": 70,
  "direction": "UP",
  "price_change_percent": 5.35,
  "components": {
    "quant_agent": {"base_forecast": 4300, "confidence": 70, "direction": "UP", "volatility": 1.2, "trend_strength": 0.4, "weight": 0.5},
    "topology_agent": {"risk_adjustment": 0.98, "adjusted_price": 4214, "network_risk_penalty": 0.02, "cluster_name": "IT",
      "cluster_risk": "Low", "centrality_score": 0.5, "contagion_risk": 0.1,
      "neighbor_signals": [{"symbol": "INFY", "signal": "bullish", "risk_score": 0.2}], "weight": 0.3},
    "sentiment_agent": {"sentiment_multiplier": 1.05, "consensus_score": 0.5, "sentiment_label": "VeryGood",
      "bull_bear_ratio": 0.75, "confidence": 60, "weight": 0.2}
  },
  "comparison": {"lstm_base": 4300, "agentic_adjusted": 4424.7, "topology_adjustment_pct": -2,
    "sentiment_adjustment_pct": 5, "total_adjustment_pct": 2.9},
  "shock_simulation_active": false,
  "disclaimer": "demo only"
}`

// 4230 * 0.99 * 1.0 = 4187.7 against 4200: -0.29%, SIDEWAYS under a 1% band.
const sidewaysReply = `{
  "symbol": "TCS",
  "timestamp": "2025-01-01T00:00:00Z",
  "current_price": 4200,
  "weighted_prediction": 4187.7,
  "confidence_score": 66.4,
  "direction": "SIDEWAYS",
  "price_change_percent": -0.29,
  "components": {
    "quant_agent": {"base_forecast": 4230, "confidence": 62, "direction": "SIDEWAYS", "volatility": 0.8, "trend_strength": 0.1, "weight": 0.5},
    "topology_agent": {"risk_adjustment": 0.99, "adjusted_price": 4187.7, "network_risk_penalty": 0.01, "cluster_name": "IT",
      "cluster_risk": "Low", "centrality_score": 0.3, "contagion_risk": 0.1, "neighbor_signals": [], "weight": 0.3},
    "sentiment_agent": {"sentiment_multiplier": 1, "consensus_score": 0, "sentiment_label": "Neutral",
      "bull_bear_ratio": 0.5, "confidence": 50, "weight": 0.2}
  },
  "comparison": {"lstm_base": 4230, "agentic_adjusted": 4187.7, "topology_adjustment_pct": -1,
    "sentiment_adjustment_pct": 0, "total_adjustment_pct": -1},
  "shock_simulation_active": false,
  "disclaimer": "demo only"
}`

func serveReply(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// mutate decodes upstreamReply, applies fn and re-encodes it.
func mutate(t *testing.T, fn func(m map[string]interface{})) string {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(upstreamReply), &m))
	fn(m)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func component(m map[string]interface{}, name string) map[string]interface{} {
	return m["components"].(map[string]interface{})[name].(map[string]interface{})
}

func mustRequest(t *testing.T, symbol string, shock bool, price float64) models.PredictionRequest {
	t.Helper()
	req, err := models.NewPredictionRequest(symbol, shock, price)
	require.NoError(t, err)
	return req
}

func TestRemotePredictorServesReplyUnchanged(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ensemblePath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamReply))
	}))
	defer srv.Close()

	res, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), mustRequest(t, "tcs", false, 4200))
	require.NoError(t, err)

	assert.Equal(t, "TCS", got.Symbol)
	require.NotNil(t, got.CurrentPrice)
	assert.Equal(t, 4200.0, *got.CurrentPrice)

	var want models.EnsembleResult
	require.NoError(t, json.Unmarshal([]byte(upstreamReply), &want))
	assert.Equal(t, want, res)
	// local fusion would escalate the tier and apply its conflict penalty; the reply keeps its own values
	assert.Equal(t, models.ClusterRiskLow, res.Components.Topology.ClusterRisk)
	assert.Equal(t, 70.0, res.ConfidenceScore)
}

func TestRemotePredictorKeepsUpstreamPolicy(t *testing.T) {
	srv := serveReply(t, sidewaysReply)

	res, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), mustRequest(t, "TCS", false, 4200))
	require.NoError(t, err)

	assert.Equal(t, models.DirectionSideways, res.Direction)
	assert.Equal(t, 66.4, res.ConfidenceScore)
	assert.Equal(t, "2025-01-01T00:00:00Z", res.Timestamp)
	assert.Equal(t, 4187.7, res.WeightedPrediction)
}

func TestRemotePredictorMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"symbol":`,
		"empty object": `{}`,
		"wrong symbol": mutate(t, func(m map[string]interface{}) { m["symbol"] = "INFY" }),
		"shock flag":   mutate(t, func(m map[string]interface{}) { m["shock_simulation_active"] = true }),
		"bad direction": mutate(t, func(m map[string]interface{}) {
			component(m, "quant_agent")["direction"] = "MAYBE"
		}),
		"lowercase tier": mutate(t, func(m map[string]interface{}) {
			component(m, "topology_agent")["cluster_risk"] = "low"
		}),
		"foreign label": mutate(t, func(m map[string]interface{}) {
			component(m, "sentiment_agent")["sentiment_label"] = "Bullish"
		}),
		"label against consensus": mutate(t, func(m map[string]interface{}) {
			component(m, "sentiment_agent")["sentiment_label"] = "Bad"
		}),
		"zero risk adjustment": mutate(t, func(m map[string]interface{}) {
			component(m, "topology_agent")["risk_adjustment"] = 0
		}),
		"zero weights": mutate(t, func(m map[string]interface{}) {
			component(m, "quant_agent")["weight"] = 0
			component(m, "topology_agent")["weight"] = 0
			component(m, "sentiment_agent")["weight"] = 0
		}),
		"broken chain":    mutate(t, func(m map[string]interface{}) { m["weighted_prediction"] = 4500 }),
		"adjusted price":  mutate(t, func(m map[string]interface{}) { component(m, "topology_agent")["adjusted_price"] = 4300 }),
		"change percent":  mutate(t, func(m map[string]interface{}) { m["price_change_percent"] = 2.38 }),
		"direction sign":  mutate(t, func(m map[string]interface{}) { m["direction"] = "DOWN" }),
		"confidence high": mutate(t, func(m map[string]interface{}) { m["confidence_score"] = 90 }),
		"comparison": mutate(t, func(m map[string]interface{}) {
			m["comparison"].(map[string]interface{})["lstm_base"] = 4000
		}),
		"missing comparison": mutate(t, func(m map[string]interface{}) { delete(m, "comparison") }),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serveReply(t, body)
			_, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), mustRequest(t, "TCS", false, 4200))
			assert.ErrorIs(t, err, models.ErrMalformedUpstream)
		})
	}
}

func TestRemotePredictorUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemotePredictor(srv.URL, time.Second, nil).Predict(context.Background(), mustRequest(t, "TCS", false, 4200))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemotePredictorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewRemotePredictor(srv.URL, 20*time.Millisecond, nil).Predict(context.Background(), mustRequest(t, "TCS", false, 4200))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemotePredictorNotConfigured(t *testing.T) {
	_, err := NewRemotePredictor("", time.Second, nil).Predict(context.Background(), mustRequest(t, "TCS", false, 4200))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestRemotePredictorRetriedOnlyByService(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := usecase.NewEnsembleService(NewRemotePredictor(srv.URL, time.Second, nil), nil, nil, nil, nil,
		usecase.ResilienceConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	res, err := svc.GetEnsemble(context.Background(), mustRequest(t, "TCS", false, 4200))
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceSynthetic, res.Source)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
