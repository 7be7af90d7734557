package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
)

type recordingMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	fallbacks   map[string]int
	errors      map[string]int
	sent        int
	lastPrice   map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		predictions: map[string]int{},
		fallbacks:   map[string]int{},
		errors:      map[string]int{},
		lastPrice:   map[string]float64{},
	}
}

func (m *recordingMetrics) RecordPrediction(source, _ string) {
	m.mu.Lock()
	m.predictions[source]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordFallback(reason string) {
	m.mu.Lock()
	m.fallbacks[reason]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordMessageSent(_, _ string) {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	m.lastPrice[symbol] = price
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

func (m *recordingMetrics) fallback(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbacks[reason]
}

func (m *recordingMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *recordingMetrics) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// stubLive returns a fixed outcome, or blocks until ctx ends when block is set.
type stubLive struct {
	mu    sync.Mutex
	res   models.EnsembleResult
	err   error
	block bool
	calls int
}

func (s *stubLive) Predict(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return models.EnsembleResult{}, ctx.Err()
	}
	if s.err != nil {
		return models.EnsembleResult{}, s.err
	}
	res := s.res
	res.Symbol = req.Symbol()
	res.CurrentPrice = req.CurrentPrice()
	return res, nil
}

func (s *stubLive) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubQuotes struct {
	price float64
	err   error
}

func (s stubQuotes) Quote(_ context.Context, symbol string) (models.Quote, error) {
	if s.err != nil {
		return models.Quote{}, s.err
	}
	return models.Quote{Symbol: symbol, Price: s.price, Source: "stub", AsOf: time.Now()}, nil
}

// countingProvider counts calls and serves results with the given provenance.
type countingProvider struct {
	mu     sync.Mutex
	calls  int
	source models.Provenance
	err    error
}

func (p *countingProvider) GetEnsemble(_ context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return models.EnsembleResult{}, p.err
	}
	res := NewSynthesizer(DefaultWeights()).Synthesize(req.Symbol(), 100, req.ShockSimulation(), time.Unix(0, 0))
	res.Source = p.source
	return res, nil
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// memStore is a minimal in-package PredictionStore.
type memStore struct {
	mu      sync.Mutex
	recs    []*models.PredictionRecord
	failErr error
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) Store(ctx context.Context, rec *models.PredictionRecord) error {
	return s.StoreBatch(ctx, []*models.PredictionRecord{rec})
}

func (s *memStore) StoreBatch(_ context.Context, recs []*models.PredictionRecord) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	s.recs = append(s.recs, recs...)
	s.mu.Unlock()
	return nil
}

func (s *memStore) Query(_ context.Context, symbol string, since time.Time, limit int) ([]*models.PredictionRecord, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.PredictionRecord
	for _, r := range s.recs {
		if r.Symbol == symbol && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

type stubSource struct {
	kind models.AgentKind
	sig  models.Signal
	err  error
}

func (s stubSource) Kind() models.AgentKind { return s.kind }

func (s stubSource) Compute(context.Context, string, float64) (models.Signal, error) {
	return s.sig, s.err
}

func sampleQuant() models.QuantSignal {
	return models.QuantSignal{BaseForecast: 102, Confidence: 80, Direction: models.DirectionUp, Volatility: 1.5, TrendStrength: 0.4, Weight: 0.5}
}

func sampleTopology() models.TopologySignal {
	return models.TopologySignal{
		RiskAdjustment:     0.98,
		NetworkRiskPenalty: 0.02,
		ClusterRisk:        models.ClusterRiskLow,
		ClusterName:        "Energy",
		CentralityScore:    0.4,
		ContagionRisk:      0.1,
		Weight:             0.3,
	}
}

func sampleSentiment() models.SentimentSignal {
	return models.SentimentSignal{SentimentMultiplier: 1.05, ConsensusScore: 0.5, BullBearRatio: 0.75, Confidence: 70, Weight: 0.2}
}
