package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
)

// MemoryPredictionStore keeps the newest records per symbol in process memory.
type MemoryPredictionStore struct {
	mu        sync.RWMutex
	perSymbol int
	bySymbol  map[string][]*models.PredictionRecord
	ids       map[string]struct{}
}

// NewMemoryPredictionStore keeps at most perSymbol records for each symbol (default 500).
func NewMemoryPredictionStore(perSymbol int) *MemoryPredictionStore {
	if perSymbol <= 0 {
		perSymbol = 500
	}
	return &MemoryPredictionStore{
		perSymbol: perSymbol,
		bySymbol:  make(map[string][]*models.PredictionRecord),
		ids:       make(map[string]struct{}),
	}
}

func (s *MemoryPredictionStore) Init(context.Context) error { return nil }

func (s *MemoryPredictionStore) Store(ctx context.Context, rec *models.PredictionRecord) error {
	return s.StoreBatch(ctx, []*models.PredictionRecord{rec})
}

func (s *MemoryPredictionStore) StoreBatch(_ context.Context, recs []*models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if r == nil || r.ID == "" || r.Symbol == "" {
			continue
		}
		if _, dup := s.ids[r.ID]; dup {
			continue
		}
		cp := *r
		s.ids[cp.ID] = struct{}{}
		list := append(s.bySymbol[cp.Symbol], &cp)
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
		if len(list) > s.perSymbol {
			for _, old := range list[s.perSymbol:] {
				delete(s.ids, old.ID)
			}
			list = list[:s.perSymbol]
		}
		s.bySymbol[cp.Symbol] = list
	}
	return nil
}

func (s *MemoryPredictionStore) Query(_ context.Context, symbol string, since time.Time, limit int) ([]*models.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PredictionRecord, 0)
	for _, r := range s.bySymbol[symbol] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !since.IsZero() && r.CreatedAt.Before(since) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryPredictionStore) Health(context.Context) error { return nil }

func (s *MemoryPredictionStore) Close() error { return nil }

var _ domrepo.PredictionStore = (*MemoryPredictionStore)(nil)
