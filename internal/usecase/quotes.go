package usecase

import (
	"context"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	icache "QuantPulse/internal/service/cache"
	applogger "QuantPulse/pkg/logger"
)

const defaultDemoPrice = 1000.0

var demoPrices = map[string]float64{
	"RELIANCE":   2950,
	"TCS":        4200,
	"HDFCBANK":   1750,
	"INFY":       1850,
	"ICICIBANK":  1250,
	"BHARTIARTL": 1650,
	"ITC":        485,
	"SBIN":       850,
	"LT":         3650,
	"HCLTECH":    1750,
}

// DemoPrice returns the static demo price for a symbol. Exchange suffixes such as ".NS" are ignored.
func DemoPrice(symbol string) float64 {
	s := strings.ToUpper(symbol)
	if i := strings.IndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	if p, ok := demoPrices[s]; ok {
		return p
	}
	return defaultDemoPrice
}

// QuoteResolver resolves a current price: last streamed trade, then the remote quote source, then the demo table.
type QuoteResolver struct {
	last    *icache.TTLCache
	ttl     time.Duration
	remote  domrepo.QuoteSource
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewQuoteResolver(last *icache.TTLCache, ttl time.Duration, remote domrepo.QuoteSource, metrics domrepo.Metrics, logger *applogger.Logger) *QuoteResolver {
	if last == nil {
		last = icache.NewTTLCache()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &QuoteResolver{last: last, ttl: ttl, remote: remote, metrics: metrics, logger: logger}
}

// Observe records a streamed trade as the last known price.
func (r *QuoteResolver) Observe(t *models.Trade) {
	if t == nil || t.Price <= 0 {
		return
	}
	r.last.Set(quoteKey(t.Symbol), models.Quote{
		Symbol: strings.ToUpper(t.Symbol),
		Price:  t.Price,
		Source: "stream",
		AsOf:   time.Unix(t.Timestamp, 0).UTC(),
	}, r.ttl)
}

// Quote never fails: the demo table is the last resort.
func (r *QuoteResolver) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if v, ok := r.last.Get(quoteKey(symbol)); ok {
		if q, ok := v.(models.Quote); ok && q.Price > 0 {
			return q, nil
		}
	}

	if r.remote != nil {
		start := time.Now()
		q, err := r.remote.Quote(ctx, symbol)
		if r.metrics != nil {
			r.metrics.RecordLatency("quote_remote_seconds", time.Since(start).Seconds())
		}
		if err == nil && q.Price > 0 {
			r.last.Set(quoteKey(symbol), q, r.ttl)
			if r.metrics != nil {
				r.metrics.RecordLastPrice(symbol, q.Price)
			}
			return q, nil
		}
		if r.metrics != nil {
			r.metrics.RecordError("quote_remote")
		}
		if r.logger != nil && err != nil {
			r.logger.Debug("remote quote unavailable", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}

	return models.Quote{Symbol: symbol, Price: DemoPrice(symbol), Source: "demo", AsOf: time.Now().UTC()}, nil
}

func quoteKey(symbol string) string { return "quote:" + strings.ToUpper(symbol) }

var _ domrepo.QuoteSource = (*QuoteResolver)(nil)
