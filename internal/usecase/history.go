package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryUseCase serves the prediction event log.
type HistoryUseCase struct {
	store domrepo.PredictionStore
}

func NewHistoryUseCase(store domrepo.PredictionStore) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

type GetHistoryParams struct {
	Symbol string
	Since  time.Time
	Limit  int
}

type GetHistoryResult struct {
	Symbol      string                     `json:"symbol"`
	Count       int                        `json:"count"`
	Predictions []*models.PredictionRecord `json:"predictions"`
}

// GetHistory returns the newest records first.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", models.ErrInvalidRequest)
	}
	if p.Limit <= 0 {
		p.Limit = defaultHistoryLimit
	}
	if p.Limit > maxHistoryLimit {
		p.Limit = maxHistoryLimit
	}
	if uc.store == nil {
		return &GetHistoryResult{Symbol: p.Symbol, Predictions: []*models.PredictionRecord{}}, nil
	}

	recs, err := uc.store.Query(ctx, p.Symbol, p.Since, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	if recs == nil {
		recs = []*models.PredictionRecord{}
	}
	if len(recs) > p.Limit {
		recs = recs[:p.Limit]
	}

	return &GetHistoryResult{
		Symbol:      p.Symbol,
		Count:       len(recs),
		Predictions: recs,
	}, nil
}
