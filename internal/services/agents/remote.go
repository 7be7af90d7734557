package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/usecase"
	xhttp "QuantPulse/pkg/http"
)

const ensemblePath = "/api/v1/ensemble-predict"

// Tolerances absorb the upstream's rounding: prices to 2 decimals, percents to 2, confidence to 1.
const (
	priceTolerance      = 0.011
	relativeTolerance   = 1e-3
	percentTolerance    = 0.021
	confidenceTolerance = 0.11
)

type remoteRequest struct {
	Symbol          string   `json:"symbol"`
	ShockSimulation bool     `json:"shock_simulation"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
}

// RemotePredictor delegates the prediction to an upstream ensemble service.
// A reply is served exactly as received, or rejected with ErrMalformedUpstream.
type RemotePredictor struct {
	base *HTTPServiceBase
	agg  *usecase.Aggregator
}

func NewRemotePredictor(baseURL string, timeout time.Duration, agg *usecase.Aggregator) *RemotePredictor {
	if agg == nil {
		agg = usecase.NewAggregator(usecase.AggregatorConfig{})
	}
	return &RemotePredictor{
		base: NewHTTPServiceBase(strings.TrimRight(baseURL, "/"), timeout),
		agg:  agg,
	}
}

// Predict makes exactly one upstream call. Retries belong to the caller.
func (p *RemotePredictor) Predict(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	body := remoteRequest{Symbol: req.Symbol(), ShockSimulation: req.ShockSimulation()}
	if price := req.CurrentPrice(); price > 0 {
		body.CurrentPrice = &price
	}

	var reply models.EnsembleResult
	if err := p.base.PostJSON(ctx, ensemblePath, body, &reply); err != nil {
		return models.EnsembleResult{}, err
	}
	if err := p.check(ctx, req, reply); err != nil {
		return models.EnsembleResult{}, fmt.Errorf("%w: %v", models.ErrMalformedUpstream, err)
	}
	return reply, nil
}

// check validates the reply against the wire schema and its own arithmetic.
// Policy values the upstream may tune (direction band, conflict penalty) are only bounded, not recomputed.
func (p *RemotePredictor) check(ctx context.Context, req models.PredictionRequest, r models.EnsembleResult) error {
	if err := xhttp.ValidateStruct(ctx, &r); err != nil {
		return err
	}
	if !strings.EqualFold(r.Symbol, req.Symbol()) {
		return fmt.Errorf("reply for %q, asked %q", r.Symbol, req.Symbol())
	}
	if r.ShockSimulationActive != req.ShockSimulation() {
		return fmt.Errorf("shock flag %v, asked %v", r.ShockSimulationActive, req.ShockSimulation())
	}
	if !finiteResult(r) {
		return fmt.Errorf("non-finite field")
	}

	c := r.Components
	if !c.Quant.Direction.Valid() || !c.Topology.ClusterRisk.Valid() || !c.Sentiment.SentimentLabel.Valid() {
		return fmt.Errorf("unknown enum value")
	}
	if want := models.SentimentLabelFor(c.Sentiment.ConsensusScore); c.Sentiment.SentimentLabel != want {
		return fmt.Errorf("sentiment label %q, consensus implies %q", c.Sentiment.SentimentLabel, want)
	}

	ref, err := p.agg.Aggregate(usecase.AggregateInput{
		Symbol:       r.Symbol,
		Quant:        c.Quant,
		Topology:     c.Topology,
		Sentiment:    c.Sentiment,
		CurrentPrice: r.CurrentPrice,
		Shock:        r.ShockSimulationActive,
	})
	if err != nil {
		return err
	}

	if !closePrice(r.WeightedPrediction, ref.WeightedPrediction) {
		return fmt.Errorf("weighted prediction %v, chain gives %v", r.WeightedPrediction, ref.WeightedPrediction)
	}
	if !closePrice(c.Topology.AdjustedPrice, ref.Components.Topology.AdjustedPrice) {
		return fmt.Errorf("adjusted price %v, chain gives %v", c.Topology.AdjustedPrice, ref.Components.Topology.AdjustedPrice)
	}
	if !closePrice(r.Comparison.LSTMBase, c.Quant.BaseForecast) ||
		!closePrice(r.Comparison.AgenticAdjusted, r.WeightedPrediction) {
		return fmt.Errorf("comparison does not match the chain")
	}
	if !closePct(r.PriceChangePercent, ref.PriceChangePercent) ||
		!closePct(r.Comparison.TopologyAdjustmentPct, ref.Comparison.TopologyAdjustmentPct) ||
		!closePct(r.Comparison.SentimentAdjustmentPct, ref.Comparison.SentimentAdjustmentPct) {
		return fmt.Errorf("percentages do not match the chain")
	}

	switch {
	case r.Direction == models.DirectionUp && r.PriceChangePercent <= 0,
		r.Direction == models.DirectionDown && r.PriceChangePercent >= 0:
		return fmt.Errorf("direction %s against change %v%%", r.Direction, r.PriceChangePercent)
	}

	if ceiling := confidenceCeiling(c.Quant, c.Topology, c.Sentiment); r.ConfidenceScore > ceiling+confidenceTolerance {
		return fmt.Errorf("confidence %v above component mean %v", r.ConfidenceScore, ceiling)
	}
	return nil
}

// confidenceCeiling is the weighted mean of component confidences, the value with no conflict penalty.
func confidenceCeiling(signals ...models.Signal) float64 {
	var sum, wsum float64
	for _, s := range signals {
		sum += s.Share() * s.ConfidencePct()
		wsum += s.Share()
	}
	return sum / wsum
}

func closePrice(got, want float64) bool {
	return math.Abs(got-want) <= math.Max(priceTolerance, relativeTolerance*math.Abs(want))
}

func closePct(got, want float64) bool {
	return math.Abs(got-want) <= percentTolerance
}

func finiteResult(r models.EnsembleResult) bool {
	q, t, s, cmp := r.Components.Quant, r.Components.Topology, r.Components.Sentiment, r.Comparison
	for _, x := range []float64{
		r.CurrentPrice, r.WeightedPrediction, r.ConfidenceScore, r.PriceChangePercent,
		q.BaseForecast, q.Confidence, q.Volatility, q.TrendStrength, q.Weight,
		t.RiskAdjustment, t.AdjustedPrice, t.NetworkRiskPenalty, t.CentralityScore, t.ContagionRisk, t.Weight,
		s.SentimentMultiplier, s.ConsensusScore, s.BullBearRatio, s.Confidence, s.Weight,
		cmp.LSTMBase, cmp.AgenticAdjusted, cmp.TopologyAdjustmentPct, cmp.SentimentAdjustmentPct, cmp.TotalAdjustmentPct,
	} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

var _ domsvc.LivePredictor = (*RemotePredictor)(nil)
