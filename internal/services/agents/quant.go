package agents

import (
	"context"
	"math"

	"QuantPulse/internal/domain/models"
	drepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/services/features"
	applogger "QuantPulse/pkg/logger"
)

const (
	minQuantHistory      = 20
	defaultQuantLookback = 60
)

// QuantAgent produces the base forecast from daily closes with a moving-average trend model.
type QuantAgent struct {
	history  drepo.PriceHistory
	weight   float64
	lookback int
	logger   *applogger.Logger
}

func NewQuantAgent(history drepo.PriceHistory, weight float64, lookback int, logger *applogger.Logger) *QuantAgent {
	if lookback < minQuantHistory {
		lookback = defaultQuantLookback
	}
	return &QuantAgent{history: history, weight: weight, lookback: lookback, logger: logger}
}

func (a *QuantAgent) Kind() models.AgentKind { return models.AgentQuant }

// Compute falls back to a flat +2% call when history is missing or short.
func (a *QuantAgent) Compute(ctx context.Context, symbol string, price float64) (models.Signal, error) {
	if a.history == nil {
		return a.fallback(price), nil
	}
	candles, err := a.history.GetLatestNCandles(ctx, symbol, a.lookback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if a.logger != nil {
			a.logger.Debug("quant history unavailable", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return a.fallback(price), nil
	}
	return a.Forecast(models.Closes(candles), price), nil
}

// Forecast applies the trend model to closes, oldest first.
func (a *QuantAgent) Forecast(closes []float64, price float64) models.QuantSignal {
	if len(closes) < minQuantHistory {
		return a.fallback(price)
	}
	sma20 := features.SMA(closes, 20)
	sma5 := features.SMA(closes, 5)
	last := closes[len(closes)-1]
	if sma20 <= 0 || sma5 <= 0 {
		return a.fallback(price)
	}

	trend := (sma5 - sma20) / sma20
	momentum := (last - sma5) / sma5

	var (
		dir    models.Direction
		change float64
	)
	switch {
	case trend > 0.01 && momentum > 0:
		dir = models.DirectionUp
		change = math.Abs(trend) * (1 + momentum)
	case trend < -0.01 && momentum < 0:
		dir = models.DirectionDown
		change = -math.Abs(trend) * (1 + math.Abs(momentum))
	default:
		dir = models.DirectionSideways
		change = trend * 0.5
	}

	base := price * (1 + change)
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return a.fallback(price)
	}
	strength := math.Min(math.Abs(trend)*100, 1)

	return models.QuantSignal{
		BaseForecast:  base,
		Confidence:    50 + strength*40,
		Direction:     dir,
		Volatility:    features.StdDev(features.SimpleReturns(closes)) * 100,
		TrendStrength: strength,
		Weight:        a.weight,
	}
}

func (a *QuantAgent) fallback(price float64) models.QuantSignal {
	return models.QuantSignal{
		BaseForecast:  price * 1.02,
		Confidence:    65,
		Direction:     models.DirectionUp,
		Volatility:    2,
		TrendStrength: 0.5,
		Weight:        a.weight,
	}
}

var _ domsvc.SignalSource = (*QuantAgent)(nil)
