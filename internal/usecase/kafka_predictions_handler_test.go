package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPredictionsHandler(t *testing.T) {
	store := &memStore{}
	m := newRecordingMetrics()
	h := NewKafkaPredictionsHandler("predictions.v1", store, m, BackendClickHouse)
	assert.Equal(t, "predictions.v1", h.Topic())

	rec := models.NewPredictionRecord(NewSynthesizer(DefaultWeights()).Synthesize("ITC", 485, false, time.Now()), time.Now())
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Equal(t, 1, store.count())
	assert.Equal(t, rec.ID, store.recs[0].ID)
	assert.Equal(t, 1, m.sentCount())
}

func TestKafkaPredictionsHandlerRejects(t *testing.T) {
	m := newRecordingMetrics()
	h := NewKafkaPredictionsHandler("p", &memStore{}, m, BackendSQLite)

	assert.Error(t, h.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, 1, m.errorCount("consumer_unmarshal"))

	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"ITC"}`)))
	assert.Equal(t, 1, m.errorCount("consumer_invalid"))

	h = NewKafkaPredictionsHandler("p", &memStore{failErr: errors.New("readonly")}, m, BackendSQLite)
	assert.Error(t, h.Handle(context.Background(), []byte(`{"id":"1","symbol":"ITC"}`)))
	assert.Equal(t, 1, m.errorCount("consumer_store"))
}
