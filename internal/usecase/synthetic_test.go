package usecase

import (
	"testing"
	"time"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeChainIsConsistent(t *testing.T) {
	s := NewSynthesizer(DefaultWeights())
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, shock := range []bool{false, true} {
		res := s.Synthesize("HDFCBANK", 1750, shock, at)
		q, tp, se := res.Components.Quant, res.Components.Topology, res.Components.Sentiment

		assert.InDelta(t, 1785, q.BaseForecast, 1e-9)
		assert.InDelta(t, q.BaseForecast*tp.RiskAdjustment, tp.AdjustedPrice, 1e-9)
		assert.InDelta(t, tp.AdjustedPrice*se.SentimentMultiplier, res.WeightedPrediction, 1e-9)
		assert.InDelta(t, res.WeightedPrediction, res.Comparison.AgenticAdjusted, 1e-9)
		assert.Equal(t, models.ProvenanceSynthetic, res.Source)
		assert.Equal(t, shock, res.ShockSimulationActive)
		assert.Equal(t, "2024-01-02T03:04:05Z", res.Timestamp)
		assert.Equal(t, models.SentimentLabelFor(se.ConsensusScore), se.SentimentLabel)
		assert.Equal(t, models.ClusterRiskFor(tp.NetworkRiskPenalty, tp.ContagionRisk), tp.ClusterRisk)

		c := res.Comparison
		want := c.TopologyAdjustmentPct + c.SentimentAdjustmentPct + c.TopologyAdjustmentPct*c.SentimentAdjustmentPct/100
		assert.InDelta(t, want, c.TotalAdjustmentPct, 1e-9)
	}
}

func TestSynthesizeFixedOutcomes(t *testing.T) {
	s := NewSynthesizer(Weights{})
	at := time.Now()

	normal := s.Synthesize("RELIANCE", 2450, false, at)
	assert.InDelta(t, 2535.75, normal.WeightedPrediction, 1e-9)
	assert.InDelta(t, 3.5, normal.PriceChangePercent, 1e-9)
	assert.Equal(t, 78.0, normal.ConfidenceScore)
	assert.Equal(t, models.DirectionUp, normal.Direction)
	assert.Equal(t, 0.5, normal.Components.Quant.Weight)

	shock := s.Synthesize("RELIANCE", 2450, true, at)
	assert.InDelta(t, 2327.5, shock.WeightedPrediction, 1e-9)
	assert.Equal(t, 58.0, shock.ConfidenceScore)
	assert.Equal(t, models.DirectionDown, shock.Direction)
	assert.Equal(t, models.SentimentBad, shock.Components.Sentiment.SentimentLabel)
	assert.Equal(t, models.ClusterRiskHigh, shock.Components.Topology.ClusterRisk)
}
