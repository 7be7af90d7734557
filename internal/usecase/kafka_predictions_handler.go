package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgkafka "QuantPulse/pkg/kafka"
)

// KafkaPredictionsHandler consumes prediction events and writes them to the store.
type KafkaPredictionsHandler struct {
	topic   string
	storage domrepo.PredictionStore
	metrics domrepo.Metrics
	backend string
}

func NewKafkaPredictionsHandler(topic string, storage domrepo.PredictionStore, metrics domrepo.Metrics, backend string) *KafkaPredictionsHandler {
	return &KafkaPredictionsHandler{topic: topic, storage: storage, metrics: metrics, backend: backend}
}

func (h *KafkaPredictionsHandler) Topic() string { return h.topic }

// Handle expects a JSON PredictionRecord.
func (h *KafkaPredictionsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.PredictionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if rec.ID == "" || rec.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("prediction event missing id or symbol")
	}
	if !rec.CreatedAt.IsZero() {
		h.metrics.RecordLatency("event_e2e_seconds", time.Since(rec.CreatedAt).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &rec)
	h.metrics.RecordLatency("store_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent(h.backend, rec.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPredictionsHandler)(nil)
