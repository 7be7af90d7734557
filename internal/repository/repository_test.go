package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)

func rec(id, symbol string, at time.Time) *models.PredictionRecord {
	return &models.PredictionRecord{
		ID:                 id,
		Symbol:             symbol,
		Source:             "live",
		Shock:              id == "b",
		CurrentPrice:       100,
		WeightedPrediction: 103.5,
		ConfidenceScore:    78,
		Direction:          models.DirectionUp,
		PriceChangePercent: 3.5,
		CreatedAt:          at,
	}
}

func exerciseStore(t *testing.T, s domrepo.PredictionStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.StoreBatch(ctx, []*models.PredictionRecord{
		rec("a", "TCS", t0),
		rec("b", "TCS", t0.Add(time.Minute)),
		rec("c", "INFY", t0.Add(2*time.Minute)),
		nil,
	}))
	// redelivery is idempotent
	require.NoError(t, s.Store(ctx, rec("a", "TCS", t0)))

	got, err := s.Query(ctx, "TCS", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Shock)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.DirectionUp, got[1].Direction)
	assert.True(t, got[1].CreatedAt.Equal(t0))

	got, err = s.Query(ctx, "TCS", t0.Add(30*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	got, err = s.Query(ctx, "TCS", time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Query(ctx, "SBIN", time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, s.Health(ctx))
}

func TestSQLitePredictionStore(t *testing.T) {
	s, err := NewSQLitePredictionStore(filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryPredictionStore(t *testing.T) {
	exerciseStore(t, NewMemoryPredictionStore(0))
}

func TestMemoryPredictionStoreCapsPerSymbol(t *testing.T) {
	s := NewMemoryPredictionStore(2)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Store(ctx, rec(id, "TCS", t0.Add(time.Duration(i)*time.Minute))))
	}
	got, err := s.Query(ctx, "TCS", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

type fakeArchive struct {
	candles []models.Candle
	err     error
	stored  []models.Candle
}

func (f *fakeArchive) GetLatestNCandles(context.Context, string, int) ([]models.Candle, error) {
	return f.candles, f.err
}

func (f *fakeArchive) StoreCandles(_ context.Context, cs []models.Candle) error {
	f.stored = append(f.stored, cs...)
	return nil
}

type fakeRemote struct {
	candles []models.Candle
	err     error
	calls   int
}

func (f *fakeRemote) GetLatestNCandles(context.Context, string, int) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

func candles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Symbol: "TCS", Bucket: t0.AddDate(0, 0, i), Close: float64(100 + i)}
	}
	return out
}

func TestTieredHistoryServesFromArchive(t *testing.T) {
	archive := &fakeArchive{candles: candles(30)}
	remote := &fakeRemote{}
	h := NewTieredHistory(archive, remote, nil)

	got, err := h.GetLatestNCandles(context.Background(), "TCS", 30)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Zero(t, remote.calls)
}

func TestTieredHistoryBackfillsShortArchive(t *testing.T) {
	archive := &fakeArchive{candles: candles(5)}
	remote := &fakeRemote{candles: candles(30)}
	h := NewTieredHistory(archive, remote, nil)

	got, err := h.GetLatestNCandles(context.Background(), "TCS", 30)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Equal(t, 1, remote.calls)
	assert.Len(t, archive.stored, 30)
}

func TestTieredHistoryArchiveErrorFallsBack(t *testing.T) {
	archive := &fakeArchive{err: errors.New("down")}
	remote := &fakeRemote{err: errors.New("also down")}
	h := NewTieredHistory(archive, remote, nil)

	_, err := h.GetLatestNCandles(context.Background(), "TCS", 30)
	assert.EqualError(t, err, "also down")
	assert.Empty(t, archive.stored)
}
