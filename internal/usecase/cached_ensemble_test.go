package usecase

import (
	"context"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEnsembleServesLiveFromCache(t *testing.T) {
	store := cache.NewMemoryCache()
	defer store.Close()
	next := &countingProvider{source: models.ProvenanceLive}
	c := NewCachedEnsemble(next, store, time.Minute, newRecordingMetrics(), nil)
	req := mustRequest(t, "RELIANCE", false, 100)

	first, err := c.GetEnsemble(context.Background(), req)
	require.NoError(t, err)
	second, err := c.GetEnsemble(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, next.callCount())
	assert.Equal(t, models.ProvenanceLive, second.Source)
	assert.Equal(t, first.WeightedPrediction, second.WeightedPrediction)
	assert.Equal(t, first.Components.Topology.ClusterRisk, second.Components.Topology.ClusterRisk)

	_, err = c.GetEnsemble(context.Background(), mustRequest(t, "RELIANCE", true, 100))
	require.NoError(t, err)
	assert.Equal(t, 2, next.callCount(), "shock requests use their own key")
}

func TestCachedEnsembleSkipsSynthetic(t *testing.T) {
	store := cache.NewMemoryCache()
	defer store.Close()
	next := &countingProvider{source: models.ProvenanceSynthetic}
	c := NewCachedEnsemble(next, store, time.Minute, nil, nil)
	req := mustRequest(t, "TCS", false, 100)

	for i := 0; i < 3; i++ {
		res, err := c.GetEnsemble(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, models.ProvenanceSynthetic, res.Source)
	}
	assert.Equal(t, 3, next.callCount())
}

func TestCachedEnsembleInvalidate(t *testing.T) {
	store := cache.NewMemoryCache()
	defer store.Close()
	next := &countingProvider{source: models.ProvenanceLive}
	c := NewCachedEnsemble(next, store, time.Minute, nil, nil)
	ctx := context.Background()

	_, _ = c.GetEnsemble(ctx, mustRequest(t, "INFY", false, 100))
	_, _ = c.GetEnsemble(ctx, mustRequest(t, "ITC", false, 100))
	require.Equal(t, 2, next.callCount())

	require.NoError(t, c.Invalidate(ctx, "INFY"))
	_, _ = c.GetEnsemble(ctx, mustRequest(t, "INFY", false, 100))
	_, _ = c.GetEnsemble(ctx, mustRequest(t, "ITC", false, 100))
	assert.Equal(t, 3, next.callCount())

	require.NoError(t, c.Invalidate(ctx, ""))
	_, _ = c.GetEnsemble(ctx, mustRequest(t, "ITC", false, 100))
	assert.Equal(t, 4, next.callCount())
}

func TestCachedEnsemblePassesErrorsThrough(t *testing.T) {
	next := &countingProvider{err: models.ErrInvariantViolation}
	c := NewCachedEnsemble(next, nil, 0, nil, nil)

	_, err := c.GetEnsemble(context.Background(), mustRequest(t, "SBIN", false, 100))
	assert.ErrorIs(t, err, models.ErrInvariantViolation)

	_, err = c.GetEnsemble(context.Background(), models.PredictionRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}
