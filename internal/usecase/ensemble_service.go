package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	applogger "QuantPulse/pkg/logger"
)

// Fallback reasons reported to metrics.
const (
	ReasonTimeout     = "timeout"
	ReasonMalformed   = "malformed"
	ReasonUnavailable = "unavailable"
	ReasonCanceled    = "canceled"
)

// ResilienceConfig bounds the live attempt.
type ResilienceConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// EnsembleService is the single trust boundary: upstream failures become synthetic results.
type EnsembleService struct {
	live    domsvc.LivePredictor
	quotes  domrepo.QuoteSource
	synth   *Synthesizer
	metrics domrepo.Metrics
	logger  *applogger.Logger
	cfg     ResilienceConfig
	now     func() time.Time
}

func NewEnsembleService(
	live domsvc.LivePredictor,
	quotes domrepo.QuoteSource,
	synth *Synthesizer,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	cfg ResilienceConfig,
) *EnsembleService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 50 * time.Millisecond
	}
	if synth == nil {
		synth = NewSynthesizer(DefaultWeights())
	}
	return &EnsembleService{
		live:    live,
		quotes:  quotes,
		synth:   synth,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// GetEnsemble returns a live result when possible and a synthetic one otherwise.
// The only errors are ErrInvalidRequest and ErrInvariantViolation.
func (s *EnsembleService) GetEnsemble(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	if req.Symbol() == "" {
		return models.EnsembleResult{}, fmt.Errorf("%w: symbol is required", models.ErrInvalidRequest)
	}
	start := s.now()
	req = req.WithCurrentPrice(s.resolvePrice(ctx, req))

	res, err := s.attempt(ctx, req)
	s.observe("ensemble_live_seconds", start)

	switch {
	case err == nil:
		res.Source = models.ProvenanceLive
		s.recordServed(res)
		return res, nil
	case errors.Is(err, models.ErrInvariantViolation):
		s.recordError("invariant")
		s.log(func(l *applogger.Logger) {
			l.Error("ensemble invariant violation",
				applogger.String("symbol", req.Symbol()),
				applogger.Bool("shock", req.ShockSimulation()),
				applogger.Error(err),
			)
		})
		return models.EnsembleResult{}, err
	}

	reason := classify(ctx, err)
	if s.metrics != nil {
		s.metrics.RecordFallback(reason)
	}
	s.log(func(l *applogger.Logger) {
		l.Warn("live ensemble failed, serving synthetic result",
			applogger.String("symbol", req.Symbol()),
			applogger.String("reason", reason),
			applogger.Error(err),
		)
	})

	res = s.synth.Synthesize(req.Symbol(), req.CurrentPrice(), req.ShockSimulation(), s.now())
	s.recordServed(res)
	return res, nil
}

// attempt runs the live path with a per-attempt timeout and linear backoff between retries.
func (s *EnsembleService) attempt(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	if s.live == nil {
		return models.EnsembleResult{}, fmt.Errorf("%w: no live predictor configured", models.ErrUpstreamUnavailable)
	}
	var err error
	for i := 0; i <= s.cfg.Retries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i) * s.cfg.Backoff):
			case <-ctx.Done():
				return models.EnsembleResult{}, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, ctx.Err())
			}
		}
		var res models.EnsembleResult
		res, err = s.callOnce(ctx, req)
		if err == nil || errors.Is(err, models.ErrInvariantViolation) {
			return res, err
		}
	}
	return models.EnsembleResult{}, err
}

func (s *EnsembleService) callOnce(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type outcome struct {
		res models.EnsembleResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.live.Predict(cctx, req)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-cctx.Done():
		return models.EnsembleResult{}, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, cctx.Err())
	}
}

func (s *EnsembleService) resolvePrice(ctx context.Context, req models.PredictionRequest) float64 {
	if req.CurrentPrice() > 0 {
		return req.CurrentPrice()
	}
	if s.quotes != nil {
		q, err := s.quotes.Quote(ctx, req.Symbol())
		if err == nil && q.Price > 0 {
			return q.Price
		}
		if err != nil {
			s.log(func(l *applogger.Logger) {
				l.Warn("quote lookup failed", applogger.String("symbol", req.Symbol()), applogger.Error(err))
			})
		}
	}
	return DemoPrice(req.Symbol())
}

func (s *EnsembleService) recordServed(res models.EnsembleResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordPrediction(string(res.Source), res.Symbol)
}

func (s *EnsembleService) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

func (s *EnsembleService) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordLatency(op, s.now().Sub(start).Seconds())
	}
}

func (s *EnsembleService) log(fn func(l *applogger.Logger)) {
	if s.logger != nil {
		fn(s.logger)
	}
}

func classify(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, models.ErrMalformedUpstream):
		return ReasonMalformed
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonUnavailable
	}
}

var _ domsvc.EnsembleProvider = (*EnsembleService)(nil)
