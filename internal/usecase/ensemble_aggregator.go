package usecase

import (
	"fmt"
	"math"
	"time"

	"QuantPulse/internal/domain/models"
)

const (
	DefaultDirectionThresholdPct = 0.1
	DefaultConflictPenalty       = 0.3
)

// AggregatorConfig tunes the fusion. Zero values fall back to defaults.
type AggregatorConfig struct {
	DirectionThresholdPct float64
	ConflictPenalty       float64
}

// AggregateInput is everything the aggregator needs. At becomes the result timestamp.
type AggregateInput struct {
	Symbol       string
	Quant        models.QuantSignal
	Topology     models.TopologySignal
	Sentiment    models.SentimentSignal
	CurrentPrice float64
	Shock        bool
	At           time.Time
}

// Aggregator fuses the three agent signals into one EnsembleResult.
// It is a pure function of its input: no clock, no I/O, no shared state.
type Aggregator struct {
	threshold float64
	penalty   float64
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	a := &Aggregator{threshold: cfg.DirectionThresholdPct, penalty: cfg.ConflictPenalty}
	if a.threshold <= 0 {
		a.threshold = DefaultDirectionThresholdPct
	}
	if a.penalty <= 0 || a.penalty > 1 {
		a.penalty = DefaultConflictPenalty
	}
	return a
}

// Threshold returns the dead band used for direction calls, in percent.
func (a *Aggregator) Threshold() float64 { return a.threshold }

// Aggregate runs the multiplicative chain quant -> topology -> sentiment.
// Malformed input or a non-finite result fails with ErrInvariantViolation; nothing is clamped.
func (a *Aggregator) Aggregate(in AggregateInput) (models.EnsembleResult, error) {
	if err := checkInput(in); err != nil {
		return models.EnsembleResult{}, err
	}

	chain := composeChain(in.Quant.BaseForecast, in.Topology.RiskAdjustment, in.Sentiment.SentimentMultiplier)
	changePct := (chain.agentic - in.CurrentPrice) / in.CurrentPrice * 100

	topo := in.Topology
	topo.AdjustedPrice = chain.topologyAdjusted
	topo.ClusterRisk = models.EscalateClusterRisk(topo.ClusterRisk, topo.NetworkRiskPenalty, topo.ContagionRisk)

	sent := in.Sentiment
	sent.SentimentLabel = models.SentimentLabelFor(sent.ConsensusScore)

	confidence := a.confidence(in.Quant, topo, sent)

	res := models.EnsembleResult{
		Symbol:             in.Symbol,
		Timestamp:          models.FormatTimestamp(in.At),
		CurrentPrice:       in.CurrentPrice,
		WeightedPrediction: chain.agentic,
		ConfidenceScore:    confidence,
		Direction:          models.DirectionFor(changePct, a.threshold),
		PriceChangePercent: changePct,
		Components: models.Components{
			Quant:     in.Quant,
			Topology:  topo,
			Sentiment: sent,
		},
		Comparison:            chain.comparison(),
		ShockSimulationActive: in.Shock,
		Disclaimer:            models.Disclaimer,
	}

	if err := checkOutput(res); err != nil {
		return models.EnsembleResult{}, err
	}
	return res, nil
}

// confidence is the weight-normalised mean of component confidences,
// scaled down by the share of strictly opposed stance pairs.
func (a *Aggregator) confidence(signals ...models.Signal) float64 {
	var sum, wsum float64
	for _, s := range signals {
		sum += s.Share() * s.ConfidencePct()
		wsum += s.Share()
	}
	mean := sum / wsum

	opposed := 0
	pairs := 0
	for i := 0; i < len(signals); i++ {
		for j := i + 1; j < len(signals); j++ {
			pairs++
			if signals[i].Stance().Opposes(signals[j].Stance()) {
				opposed++
			}
		}
	}
	if pairs == 0 {
		return mean
	}
	return mean * (1 - a.penalty*float64(opposed)/float64(pairs))
}

type chainValues struct {
	base             float64
	topologyAdjusted float64
	agentic          float64
}

func composeChain(base, riskAdjustment, sentimentMultiplier float64) chainValues {
	topo := base * riskAdjustment
	return chainValues{base: base, topologyAdjusted: topo, agentic: topo * sentimentMultiplier}
}

func (c chainValues) comparison() models.Comparison {
	return models.Comparison{
		LSTMBase:               c.base,
		AgenticAdjusted:        c.agentic,
		TopologyAdjustmentPct:  (c.topologyAdjusted - c.base) / c.base * 100,
		SentimentAdjustmentPct: (c.agentic - c.topologyAdjusted) / c.topologyAdjusted * 100,
		TotalAdjustmentPct:     (c.agentic - c.base) / c.base * 100,
	}
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func invariantf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvariantViolation, fmt.Sprintf(format, a...))
}

func checkInput(in AggregateInput) error {
	q, t, s := in.Quant, in.Topology, in.Sentiment
	if in.Symbol == "" {
		return invariantf("empty symbol")
	}
	if !finite(in.CurrentPrice, q.BaseForecast, q.Confidence, q.Volatility, q.TrendStrength, q.Weight,
		t.RiskAdjustment, t.NetworkRiskPenalty, t.ContagionRisk, t.CentralityScore, t.Weight,
		s.SentimentMultiplier, s.ConsensusScore, s.Confidence, s.BullBearRatio, s.Weight) {
		return invariantf("non-finite input")
	}
	if in.CurrentPrice <= 0 {
		return invariantf("current price %v must be positive", in.CurrentPrice)
	}
	if q.BaseForecast <= 0 {
		return invariantf("base forecast %v must be positive", q.BaseForecast)
	}
	if t.RiskAdjustment <= 0 || s.SentimentMultiplier <= 0 {
		return invariantf("adjustment factors must be positive (risk=%v sentiment=%v)", t.RiskAdjustment, s.SentimentMultiplier)
	}
	if q.Weight < 0 || t.Weight < 0 || s.Weight < 0 || q.Weight+t.Weight+s.Weight <= 0 {
		return invariantf("weights must be non-negative with a positive sum")
	}
	if q.Confidence < 0 || q.Confidence > 100 || s.Confidence < 0 || s.Confidence > 100 {
		return invariantf("confidence out of [0,100]")
	}
	if t.NetworkRiskPenalty < 0 || t.NetworkRiskPenalty > 1 || t.ContagionRisk < 0 || t.ContagionRisk > 1 {
		return invariantf("topology penalty or contagion out of [0,1]")
	}
	if s.ConsensusScore < -1 || s.ConsensusScore > 1 {
		return invariantf("consensus score %v out of [-1,1]", s.ConsensusScore)
	}
	if !q.Direction.Valid() {
		return invariantf("unknown quant direction %q", q.Direction)
	}
	if !t.ClusterRisk.Valid() {
		return invariantf("unknown cluster risk %q", t.ClusterRisk)
	}
	return nil
}

func checkOutput(r models.EnsembleResult) error {
	c := r.Comparison
	if !finite(r.WeightedPrediction, r.ConfidenceScore, r.PriceChangePercent,
		c.TopologyAdjustmentPct, c.SentimentAdjustmentPct, c.TotalAdjustmentPct) {
		return invariantf("non-finite result for %s", r.Symbol)
	}
	if r.WeightedPrediction <= 0 {
		return invariantf("weighted prediction %v must be positive", r.WeightedPrediction)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 100 {
		return invariantf("confidence %v out of [0,100]", r.ConfidenceScore)
	}
	return nil
}
