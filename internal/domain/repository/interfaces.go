package repository

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// QuoteSource resolves the latest known price for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// PriceHistory provides daily candles for the quant agent, oldest first.
type PriceHistory interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error)
}

// Publisher ships prediction events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, rec *models.PredictionRecord) error
	PublishBatch(ctx context.Context, recs []*models.PredictionRecord) error
	Close() error
}

// PredictionStore persists prediction events and serves the history endpoint.
type PredictionStore interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, rec *models.PredictionRecord) error
	StoreBatch(ctx context.Context, recs []*models.PredictionRecord) error
	Query(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.PredictionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordPrediction(source, symbol string)
	RecordFallback(reason string)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
