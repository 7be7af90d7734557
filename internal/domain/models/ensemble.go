package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Direction is the directional call of a forecast.
type Direction string

const (
	DirectionUp       Direction = "UP"
	DirectionDown     Direction = "DOWN"
	DirectionSideways Direction = "SIDEWAYS"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionSideways:
		return true
	}
	return false
}

// Opposes reports whether d and o are strictly opposite calls (UP vs DOWN).
func (d Direction) Opposes(o Direction) bool {
	return (d == DirectionUp && o == DirectionDown) || (d == DirectionDown && o == DirectionUp)
}

// DirectionFor maps a percentage change to a direction using a symmetric dead band.
func DirectionFor(changePct, threshold float64) Direction {
	switch {
	case changePct > threshold:
		return DirectionUp
	case changePct < -threshold:
		return DirectionDown
	default:
		return DirectionSideways
	}
}

// Provenance tells whether a result came from the live path or was synthesized.
type Provenance string

const (
	ProvenanceLive      Provenance = "live"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Disclaimer is attached to every ensemble result.
const Disclaimer = "This ensemble prediction is for demonstration purposes only. " +
	"It combines multiple AI agents but should NOT be used for actual trading decisions."

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.&\-]{0,19}$`)

// PredictionRequest is an immutable request for one ensemble prediction.
type PredictionRequest struct {
	symbol          string
	shockSimulation bool
	currentPrice    float64
}

// NewPredictionRequest normalizes and validates a request.
// A zero price means "resolve from the quote source".
func NewPredictionRequest(symbol string, shock bool, currentPrice float64) (PredictionRequest, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return PredictionRequest{}, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if !symbolPattern.MatchString(s) {
		return PredictionRequest{}, fmt.Errorf("%w: malformed symbol %q", ErrInvalidRequest, symbol)
	}
	if math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) || currentPrice < 0 {
		return PredictionRequest{}, fmt.Errorf("%w: current price must be a non-negative number", ErrInvalidRequest)
	}
	return PredictionRequest{symbol: s, shockSimulation: shock, currentPrice: currentPrice}, nil
}

func (r PredictionRequest) Symbol() string        { return r.symbol }
func (r PredictionRequest) ShockSimulation() bool { return r.shockSimulation }
func (r PredictionRequest) CurrentPrice() float64 { return r.currentPrice }

// WithCurrentPrice returns a copy with the resolved price.
func (r PredictionRequest) WithCurrentPrice(p float64) PredictionRequest {
	r.currentPrice = p
	return r
}

// Components groups the three agent outputs.
type Components struct {
	Quant     QuantSignal     `json:"quant_agent" validate:"required"`
	Topology  TopologySignal  `json:"topology_agent" validate:"required"`
	Sentiment SentimentSignal `json:"sentiment_agent" validate:"required"`
}

// Comparison explains how far the agentic chain moved the base forecast.
type Comparison struct {
	LSTMBase               float64 `json:"lstm_base" validate:"gt=0"`
	AgenticAdjusted        float64 `json:"agentic_adjusted" validate:"gt=0"`
	TopologyAdjustmentPct  float64 `json:"topology_adjustment_pct"`
	SentimentAdjustmentPct float64 `json:"sentiment_adjustment_pct"`
	TotalAdjustmentPct     float64 `json:"total_adjustment_pct"`
}

// EnsembleResult is the fused prediction returned to callers.
type EnsembleResult struct {
	Symbol                string     `json:"symbol" validate:"required"`
	Timestamp             string     `json:"timestamp" validate:"required"`
	CurrentPrice          float64    `json:"current_price" validate:"gt=0"`
	WeightedPrediction    float64    `json:"weighted_prediction" validate:"gt=0"`
	ConfidenceScore       float64    `json:"confidence_score" validate:"gte=0,lte=100"`
	Direction             Direction  `json:"direction" validate:"oneof=UP DOWN SIDEWAYS"`
	PriceChangePercent    float64    `json:"price_change_percent"`
	Components            Components `json:"components"`
	Comparison            Comparison `json:"comparison"`
	ShockSimulationActive bool       `json:"shock_simulation_active"`
	Disclaimer            string     `json:"disclaimer"`

	Source Provenance `json:"-"`
}

// FormatTimestamp renders t in the wire format used by EnsembleResult.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
