package service

import (
	"context"

	"QuantPulse/internal/domain/models"
)

// SignalSource is one agent of the ensemble. Compute returns a QuantSignal,
// TopologySignal or SentimentSignal depending on Kind.
type SignalSource interface {
	Kind() models.AgentKind
	Compute(ctx context.Context, symbol string, price float64) (models.Signal, error)
}

// LivePredictor produces an ensemble result over the live path.
// Failures are reported with ErrUpstreamUnavailable or ErrMalformedUpstream;
// ErrInvariantViolation is reserved for arithmetic defects.
type LivePredictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error)
}

// EnsembleProvider is the caller-facing entry point. It never fails for
// upstream reasons.
type EnsembleProvider interface {
	GetEnsemble(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error)
}
