package usecase

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
	drepo "QuantPulse/internal/domain/repository"
	applogger "QuantPulse/pkg/logger"
)

// QuoteCollector feeds live trades from the market stream into the quote resolver.
type QuoteCollector struct {
	stream   drepo.MarketStream
	resolver *QuoteResolver
	metrics  drepo.Metrics
	logger   *applogger.Logger
}

func NewQuoteCollector(stream drepo.MarketStream, resolver *QuoteResolver, metrics drepo.Metrics, logger *applogger.Logger) *QuoteCollector {
	return &QuoteCollector{stream: stream, resolver: resolver, metrics: metrics, logger: logger}
}

// IsConnected returns true if the market stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream != nil && c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			if err == nil {
				continue
			}
			// the stream reconnects on its own
			c.metrics.RecordError("stream")
			if c.logger != nil {
				c.logger.Warn("market stream error", applogger.Error(err))
			}
		case t, ok := <-trCh:
			if !ok {
				return
			}
			if t == nil {
				continue
			}
			c.resolver.Observe(t)
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
			if t.Timestamp > 0 {
				c.metrics.RecordLatency("stream_lag_seconds", time.Since(time.Unix(t.Timestamp, 0)).Seconds())
			}
		}
	}
}

// Shutdown closes the stream.
func (c *QuoteCollector) Shutdown(_ context.Context) error {
	return c.stream.Close()
}
