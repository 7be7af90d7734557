package usecase

import (
	"time"

	"QuantPulse/internal/domain/models"
)

// Fixed demo coefficients for the synthetic fallback.
const (
	syntheticBaseFactor   = 1.02
	syntheticShockFactor  = 0.95
	syntheticNormalFactor = 1.035

	syntheticShockConfidence  = 58.0
	syntheticNormalConfidence = 78.0
)

// Weights are the display shares of each agent.
type Weights struct {
	Quant     float64
	Topology  float64
	Sentiment float64
}

// DefaultWeights mirrors the production split.
func DefaultWeights() Weights { return Weights{Quant: 0.5, Topology: 0.3, Sentiment: 0.2} }

// Synthesizer builds deterministic, schema-identical stand-in results.
type Synthesizer struct {
	weights Weights
}

func NewSynthesizer(w Weights) *Synthesizer {
	if w.Quant+w.Topology+w.Sentiment <= 0 {
		w = DefaultWeights()
	}
	return &Synthesizer{weights: w}
}

// Synthesize returns the demo result for price. The topology and sentiment factors are
// picked so the multiplicative chain lands exactly on the fixed prediction.
func (s *Synthesizer) Synthesize(symbol string, price float64, shock bool, at time.Time) models.EnsembleResult {
	base := price * syntheticBaseFactor

	var (
		final      = price * syntheticNormalFactor
		confidence = syntheticNormalConfidence
		direction  = models.DirectionUp
		topo       = s.calmTopology()
		sent       = s.sentiment(0.3, 70)
	)
	if shock {
		final = price * syntheticShockFactor
		confidence = syntheticShockConfidence
		direction = models.DirectionDown
		topo = s.stressedTopology()
		sent = s.sentiment(-0.3, 60)
	}

	topologyAdjusted := base * topo.RiskAdjustment
	topo.AdjustedPrice = topologyAdjusted
	sent.SentimentMultiplier = final / topologyAdjusted

	chain := chainValues{base: base, topologyAdjusted: topologyAdjusted, agentic: final}

	return models.EnsembleResult{
		Symbol:             symbol,
		Timestamp:          models.FormatTimestamp(at),
		CurrentPrice:       price,
		WeightedPrediction: final,
		ConfidenceScore:    confidence,
		Direction:          direction,
		PriceChangePercent: (final - price) / price * 100,
		Components: models.Components{
			Quant: models.QuantSignal{
				BaseForecast:  base,
				Confidence:    65,
				Direction:     models.DirectionUp,
				Volatility:    2,
				TrendStrength: 0.5,
				Weight:        s.weights.Quant,
			},
			Topology:  topo,
			Sentiment: sent,
		},
		Comparison:            chain.comparison(),
		ShockSimulationActive: shock,
		Disclaimer:            models.Disclaimer,
		Source:                models.ProvenanceSynthetic,
	}
}

func (s *Synthesizer) calmTopology() models.TopologySignal {
	t := models.TopologySignal{
		RiskAdjustment:     0.99,
		NetworkRiskPenalty: 0.01,
		ClusterName:        "Broad Market",
		CentralityScore:    0.5,
		ContagionRisk:      0.2,
		NeighborSignals: []models.NeighborSignal{
			{Symbol: "NIFTY50", Signal: models.NeighborBullish, RiskScore: 0.3},
		},
		Weight: s.weights.Topology,
	}
	t.ClusterRisk = models.ClusterRiskFor(t.NetworkRiskPenalty, t.ContagionRisk)
	return t
}

func (s *Synthesizer) stressedTopology() models.TopologySignal {
	t := models.TopologySignal{
		RiskAdjustment:     0.95,
		NetworkRiskPenalty: 0.11,
		ClusterName:        "Broad Market",
		CentralityScore:    0.5,
		ContagionRisk:      0.5,
		NeighborSignals: []models.NeighborSignal{
			{Symbol: "NIFTY50", Signal: models.NeighborBearish, RiskScore: 0.7},
			{Symbol: "BANKNIFTY", Signal: models.NeighborBearish, RiskScore: 0.65},
		},
		Weight: s.weights.Topology,
	}
	t.ClusterRisk = models.ClusterRiskFor(t.NetworkRiskPenalty, t.ContagionRisk)
	return t
}

func (s *Synthesizer) sentiment(consensus, confidence float64) models.SentimentSignal {
	return models.SentimentSignal{
		ConsensusScore: consensus,
		SentimentLabel: models.SentimentLabelFor(consensus),
		BullBearRatio:  0.5 + consensus*0.5,
		Confidence:     confidence,
		Weight:         s.weights.Sentiment,
	}
}
