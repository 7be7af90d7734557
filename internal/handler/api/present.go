package api

import (
	"QuantPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	priceDP      = 2
	confidenceDP = 1
	factorDP     = 4
)

func round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// Present rounds a result for display: prices and percentages to 2 dp, confidences to 1 dp
// and multiplicative factors to 4 dp. The input is not modified.
func Present(r models.EnsembleResult) models.EnsembleResult {
	r.CurrentPrice = round(r.CurrentPrice, priceDP)
	r.WeightedPrediction = round(r.WeightedPrediction, priceDP)
	r.PriceChangePercent = round(r.PriceChangePercent, priceDP)
	r.ConfidenceScore = round(r.ConfidenceScore, confidenceDP)

	q := &r.Components.Quant
	q.BaseForecast = round(q.BaseForecast, priceDP)
	q.Confidence = round(q.Confidence, confidenceDP)
	q.Volatility = round(q.Volatility, priceDP)
	q.TrendStrength = round(q.TrendStrength, factorDP)

	t := &r.Components.Topology
	t.RiskAdjustment = round(t.RiskAdjustment, factorDP)
	t.AdjustedPrice = round(t.AdjustedPrice, priceDP)
	t.NetworkRiskPenalty = round(t.NetworkRiskPenalty, factorDP)
	t.CentralityScore = round(t.CentralityScore, factorDP)
	t.ContagionRisk = round(t.ContagionRisk, factorDP)
	if len(t.NeighborSignals) > 0 {
		ns := make([]models.NeighborSignal, len(t.NeighborSignals))
		for i, n := range t.NeighborSignals {
			n.RiskScore = round(n.RiskScore, factorDP)
			ns[i] = n
		}
		t.NeighborSignals = ns
	}

	s := &r.Components.Sentiment
	s.SentimentMultiplier = round(s.SentimentMultiplier, factorDP)
	s.ConsensusScore = round(s.ConsensusScore, factorDP)
	s.BullBearRatio = round(s.BullBearRatio, factorDP)
	s.Confidence = round(s.Confidence, confidenceDP)

	c := &r.Comparison
	c.LSTMBase = round(c.LSTMBase, priceDP)
	c.AgenticAdjusted = round(c.AgenticAdjusted, priceDP)
	c.TopologyAdjustmentPct = round(c.TopologyAdjustmentPct, priceDP)
	c.SentimentAdjustmentPct = round(c.SentimentAdjustmentPct, priceDP)
	c.TotalAdjustmentPct = round(c.TotalAdjustmentPct, priceDP)
	return r
}
