package usecase

import (
	"math"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput() AggregateInput {
	return AggregateInput{
		Symbol:       "RELIANCE",
		Quant:        sampleQuant(),
		Topology:     sampleTopology(),
		Sentiment:    sampleSentiment(),
		CurrentPrice: 100,
		At:           time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC),
	}
}

func TestAggregateChain(t *testing.T) {
	res, err := NewAggregator(AggregatorConfig{}).Aggregate(baseInput())
	require.NoError(t, err)

	assert.InDelta(t, 104.958, res.WeightedPrediction, 1e-9)
	assert.InDelta(t, 99.96, res.Components.Topology.AdjustedPrice, 1e-9)
	assert.InDelta(t, 4.958, res.PriceChangePercent, 1e-9)
	assert.Equal(t, models.DirectionUp, res.Direction)
	assert.Equal(t, "2024-03-01T09:15:00Z", res.Timestamp)
	assert.Equal(t, models.Disclaimer, res.Disclaimer)

	c := res.Comparison
	assert.InDelta(t, 102, c.LSTMBase, 1e-9)
	assert.InDelta(t, res.WeightedPrediction, c.AgenticAdjusted, 1e-9)
	assert.InDelta(t, -2, c.TopologyAdjustmentPct, 1e-9)
	assert.InDelta(t, 5, c.SentimentAdjustmentPct, 1e-9)
	assert.InDelta(t, 2.9, c.TotalAdjustmentPct, 1e-9)
}

func TestAggregateDecompositionHolds(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	for _, risk := range []float64{0.8, 0.95, 1, 1.1} {
		for _, mult := range []float64{0.9, 0.97, 1, 1.08} {
			in := baseInput()
			in.Topology.RiskAdjustment = risk
			in.Sentiment.SentimentMultiplier = mult
			res, err := agg.Aggregate(in)
			require.NoError(t, err)
			c := res.Comparison
			want := c.TopologyAdjustmentPct + c.SentimentAdjustmentPct + c.TopologyAdjustmentPct*c.SentimentAdjustmentPct/100
			assert.InDelta(t, want, c.TotalAdjustmentPct, 1e-9, "risk=%v mult=%v", risk, mult)
		}
	}
}

func TestAggregateNormalisesLabelsAndTiers(t *testing.T) {
	in := baseInput()
	in.Sentiment.SentimentLabel = models.SentimentBad
	in.Topology.NetworkRiskPenalty = 0.09

	res, err := NewAggregator(AggregatorConfig{}).Aggregate(in)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentVeryGood, res.Components.Sentiment.SentimentLabel)
	assert.Equal(t, models.ClusterRiskHigh, res.Components.Topology.ClusterRisk)
}

func TestAggregateConfidence(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})

	res, err := agg.Aggregate(baseInput())
	require.NoError(t, err)
	// 0.5*80 + 0.3*98 + 0.2*70
	assert.InDelta(t, 83.4, res.ConfidenceScore, 1e-9)

	in := baseInput()
	in.Sentiment.ConsensusScore = -0.6
	res, err = agg.Aggregate(in)
	require.NoError(t, err)
	// quant UP against sentiment DOWN: one opposed pair of three
	assert.InDelta(t, 83.4*0.9, res.ConfidenceScore, 1e-9)
	assert.GreaterOrEqual(t, res.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, res.ConfidenceScore, 100.0)
}

func TestAggregateIdempotent(t *testing.T) {
	conflicting := baseInput()
	conflicting.Sentiment.ConsensusScore = -0.6
	conflicting.Sentiment.SentimentMultiplier = 0.96

	shocked := baseInput()
	shocked.Shock = true
	shocked.Topology.NetworkRiskPenalty = 0.12
	shocked.Topology.RiskAdjustment = 0.88

	sideways := baseInput()
	sideways.Quant.BaseForecast = 100
	sideways.Topology.RiskAdjustment = 1
	sideways.Sentiment.SentimentMultiplier = 1.0005

	tests := []struct {
		name string
		in   AggregateInput
	}{
		{"aligned", baseInput()},
		{"conflicting stances", conflicting},
		{"shock", shocked},
		{"sideways", sideways},
	}
	agg := NewAggregator(AggregatorConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := agg.Aggregate(tt.in)
			require.NoError(t, err)
			second, err := agg.Aggregate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, first, second)

			other, err := NewAggregator(AggregatorConfig{}).Aggregate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, first, other)
		})
	}
}

func TestAggregateSidewaysInsideDeadBand(t *testing.T) {
	in := baseInput()
	in.Quant.BaseForecast = 100
	in.Topology.RiskAdjustment = 1
	in.Sentiment.SentimentMultiplier = 1.0005

	res, err := NewAggregator(AggregatorConfig{}).Aggregate(in)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionSideways, res.Direction)
}

func TestAggregateRejectsBadInput(t *testing.T) {
	cases := map[string]func(*AggregateInput){
		"empty symbol":       func(in *AggregateInput) { in.Symbol = "" },
		"zero price":         func(in *AggregateInput) { in.CurrentPrice = 0 },
		"nan forecast":       func(in *AggregateInput) { in.Quant.BaseForecast = math.NaN() },
		"zero risk":          func(in *AggregateInput) { in.Topology.RiskAdjustment = 0 },
		"negative sentiment": func(in *AggregateInput) { in.Sentiment.SentimentMultiplier = -1 },
		"zero weights": func(in *AggregateInput) {
			in.Quant.Weight, in.Topology.Weight, in.Sentiment.Weight = 0, 0, 0
		},
		"confidence over 100": func(in *AggregateInput) { in.Quant.Confidence = 101 },
		"penalty over 1":      func(in *AggregateInput) { in.Topology.NetworkRiskPenalty = 1.5 },
		"consensus below -1":  func(in *AggregateInput) { in.Sentiment.ConsensusScore = -2 },
		"unknown direction":   func(in *AggregateInput) { in.Quant.Direction = "FLAT" },
		"unknown tier":        func(in *AggregateInput) { in.Topology.ClusterRisk = "Extreme" },
		"infinite result": func(in *AggregateInput) {
			in.Quant.BaseForecast, in.Topology.RiskAdjustment = math.MaxFloat64, 10
		},
	}
	agg := NewAggregator(AggregatorConfig{})
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := baseInput()
			mutate(&in)
			_, err := agg.Aggregate(in)
			assert.ErrorIs(t, err, models.ErrInvariantViolation)
		})
	}
}

func TestNewAggregatorDefaults(t *testing.T) {
	a := NewAggregator(AggregatorConfig{ConflictPenalty: 5})
	assert.Equal(t, DefaultDirectionThresholdPct, a.Threshold())
	assert.Equal(t, DefaultConflictPenalty, a.penalty)
}

func TestStressTopology(t *testing.T) {
	in := sampleTopology()
	in.NeighborSignals = []models.NeighborSignal{{Symbol: "ONGC", Signal: models.NeighborBullish, RiskScore: 0.2}}

	out := StressTopology(in)
	assert.InDelta(t, 0.882, out.RiskAdjustment, 1e-9)
	assert.InDelta(t, 0.12, out.NetworkRiskPenalty, 1e-9)
	assert.InDelta(t, 0.4, out.ContagionRisk, 1e-9)
	assert.Equal(t, models.ClusterRiskHigh, out.ClusterRisk)

	out.NeighborSignals[0].Symbol = "CHANGED"
	assert.Equal(t, "ONGC", in.NeighborSignals[0].Symbol)

	in.NetworkRiskPenalty, in.ContagionRisk = 0.95, 0.9
	out = StressTopology(in)
	assert.Equal(t, 1.0, out.NetworkRiskPenalty)
	assert.Equal(t, 1.0, out.ContagionRisk)
	assert.Equal(t, models.ClusterRiskCritical, out.ClusterRisk)
}
