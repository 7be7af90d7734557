package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionRecord is the persisted event for one served prediction.
type PredictionRecord struct {
	ID                 string    `json:"id"`
	Symbol             string    `json:"symbol"`
	Source             string    `json:"source"`
	Shock              bool      `json:"shock"`
	CurrentPrice       float64   `json:"current_price"`
	WeightedPrediction float64   `json:"weighted_prediction"`
	ConfidenceScore    float64   `json:"confidence_score"`
	Direction          Direction `json:"direction"`
	PriceChangePercent float64   `json:"price_change_percent"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewPredictionRecord builds a record from a served result.
func NewPredictionRecord(r EnsembleResult, at time.Time) PredictionRecord {
	src := r.Source
	if src == "" {
		src = ProvenanceLive
	}
	return PredictionRecord{
		ID:                 uuid.NewString(),
		Symbol:             r.Symbol,
		Source:             string(src),
		Shock:              r.ShockSimulationActive,
		CurrentPrice:       r.CurrentPrice,
		WeightedPrediction: r.WeightedPrediction,
		ConfidenceScore:    r.ConfidenceScore,
		Direction:          r.Direction,
		PriceChangePercent: r.PriceChangePercent,
		CreatedAt:          at.UTC(),
	}
}
