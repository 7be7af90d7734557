package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	drepo "QuantPulse/internal/domain/repository"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/time/rate"
)

// Client reads quotes and daily bars from Yahoo Finance.
// The upstream library is not context aware, so calls run in a goroutine and
// return early when ctx is done.
type Client struct {
	suffix  string
	limiter *rate.Limiter
	// overridable in tests
	getQuote func(symbol string) (float64, error)
	getBars  func(symbol string, start, end time.Time) ([]models.Candle, error)
}

// New builds a client. suffix is appended to bare symbols, e.g. ".NS" for NSE listings.
func New(suffix string, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		suffix:  suffix,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
	c.getQuote = fetchQuote
	c.getBars = fetchBars
	return c
}

// Quote returns the regular market price.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Quote{}, err
	}
	ticker := c.ticker(symbol)
	price, err := call(ctx, func() (float64, error) { return c.getQuote(ticker) })
	if err != nil {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: %w", ticker, err)
	}
	if price <= 0 {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: no price", ticker)
	}
	return models.Quote{
		Symbol: strings.ToUpper(symbol),
		Price:  price,
		Source: "yahoo",
		AsOf:   time.Now().UTC(),
	}, nil
}

// GetLatestNCandles returns up to n daily candles, oldest first.
func (c *Client) GetLatestNCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ticker := c.ticker(symbol)
	end := time.Now()
	// calendar days cover weekends and holidays
	start := end.AddDate(0, 0, -(n*7/5 + 10))
	bars, err := call(ctx, func() ([]models.Candle, error) { return c.getBars(ticker, start, end) })
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	for i := range bars {
		bars[i].Symbol = strings.ToUpper(symbol)
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (c *Client) ticker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if c.suffix == "" || strings.Contains(s, ".") || strings.HasPrefix(s, "^") {
		return s
	}
	return s + c.suffix
}

func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type out struct {
		v   T
		err error
	}
	ch := make(chan out, 1)
	go func() {
		v, err := fn()
		ch <- out{v, err}
	}()
	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func fetchQuote(symbol string) (float64, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return 0, fmt.Errorf("symbol not found")
	}
	return q.RegularMarketPrice, nil
}

func fetchBars(symbol string, start, end time.Time) ([]models.Candle, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	out := make([]models.Candle, 0, 64)
	for iter.Next() {
		bar := iter.Bar()
		cl := bar.Close.InexactFloat64()
		if cl <= 0 {
			continue
		}
		out = append(out, models.Candle{
			Bucket: time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  cl,
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ drepo.QuoteSource  = (*Client)(nil)
	_ drepo.PriceHistory = (*Client)(nil)
)
