package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/pkg/cache"
	applogger "QuantPulse/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const ensembleKeyPrefix = "ensemble"

// cachedResult carries the provenance that EnsembleResult hides from JSON.
type cachedResult struct {
	Result models.EnsembleResult `json:"result"`
	Source models.Provenance     `json:"source"`
}

// CachedEnsemble memoises live results and coalesces identical in-flight requests.
// Synthetic results are never cached so recovery shows up on the next call.
type CachedEnsemble struct {
	next    domsvc.EnsembleProvider
	store   cache.Service
	ttl     time.Duration
	group   singleflight.Group
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewCachedEnsemble(next domsvc.EnsembleProvider, store cache.Service, ttl time.Duration, metrics domrepo.Metrics, logger *applogger.Logger) *CachedEnsemble {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEnsemble{next: next, store: store, ttl: ttl, metrics: metrics, logger: logger}
}

func (c *CachedEnsemble) GetEnsemble(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	if req.Symbol() == "" {
		return models.EnsembleResult{}, fmt.Errorf("%w: symbol is required", models.ErrInvalidRequest)
	}
	key := ensembleKey(req)

	if c.store != nil {
		var hit cachedResult
		if err := c.store.Get(ctx, key, &hit); err == nil {
			hit.Result.Source = hit.Source
			return hit.Result, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) && c.logger != nil {
			c.logger.Warn("ensemble cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a caller that goes away must not fail the others sharing this flight
		res, err := c.next.GetEnsemble(context.WithoutCancel(ctx), req)
		if err != nil {
			return models.EnsembleResult{}, err
		}
		if res.Source == models.ProvenanceLive && c.store != nil {
			if err := c.store.Set(ctx, key, cachedResult{Result: res, Source: res.Source}, c.ttl); err != nil {
				if c.metrics != nil {
					c.metrics.RecordError("cache_write")
				}
				if c.logger != nil {
					c.logger.Warn("ensemble cache write failed", applogger.String("key", key), applogger.Error(err))
				}
			}
		}
		return res, nil
	})
	if err != nil {
		return models.EnsembleResult{}, err
	}
	return v.(models.EnsembleResult), nil
}

// Invalidate drops cached results for symbol, or for every symbol when it is empty.
func (c *CachedEnsemble) Invalidate(ctx context.Context, symbol string) error {
	if c.store == nil {
		return nil
	}
	prefix := ensembleKeyPrefix + ":"
	if symbol != "" {
		prefix = cache.GenerateKeyWithParams(ensembleKeyPrefix, symbol) + ":"
	}
	return c.store.DeleteByPattern(ctx, cache.BuildPattern(prefix))
}

func ensembleKey(req models.PredictionRequest) string {
	return cache.GenerateKeyWithParams(ensembleKeyPrefix, req.Symbol(), req.ShockSimulation(), fmt.Sprintf("%.4f", req.CurrentPrice()))
}

var _ domsvc.EnsembleProvider = (*CachedEnsemble)(nil)
