package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"

	"golang.org/x/sync/errgroup"
)

// LocalPredictor runs the three agents in-process and fuses their signals.
type LocalPredictor struct {
	quant     domsvc.SignalSource
	topology  domsvc.SignalSource
	sentiment domsvc.SignalSource
	agg       *Aggregator
	now       func() time.Time
}

// NewLocalPredictor wires one source per agent kind. Missing kinds are an error.
func NewLocalPredictor(agg *Aggregator, sources ...domsvc.SignalSource) (*LocalPredictor, error) {
	p := &LocalPredictor{agg: agg, now: time.Now}
	if p.agg == nil {
		p.agg = NewAggregator(AggregatorConfig{})
	}
	for _, s := range sources {
		if s == nil {
			continue
		}
		switch s.Kind() {
		case models.AgentQuant:
			p.quant = s
		case models.AgentTopology:
			p.topology = s
		case models.AgentSentiment:
			p.sentiment = s
		}
	}
	if p.quant == nil || p.topology == nil || p.sentiment == nil {
		return nil, errors.New("local predictor: quant, topology and sentiment sources are required")
	}
	return p, nil
}

// Predict fans the agents out concurrently. The first failing agent cancels the others.
func (p *LocalPredictor) Predict(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	var (
		q models.QuantSignal
		t models.TopologySignal
		s models.SentimentSignal
	)
	symbol, price := req.Symbol(), req.CurrentPrice()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sig, err := p.quant.Compute(gctx, symbol, price)
		if err != nil {
			return agentErr(models.AgentQuant, err)
		}
		v, ok := sig.(models.QuantSignal)
		if !ok {
			return fmt.Errorf("%w: quant agent returned %T", models.ErrMalformedUpstream, sig)
		}
		q = v
		return nil
	})
	g.Go(func() error {
		sig, err := p.topology.Compute(gctx, symbol, price)
		if err != nil {
			return agentErr(models.AgentTopology, err)
		}
		v, ok := sig.(models.TopologySignal)
		if !ok {
			return fmt.Errorf("%w: topology agent returned %T", models.ErrMalformedUpstream, sig)
		}
		t = v
		return nil
	})
	g.Go(func() error {
		sig, err := p.sentiment.Compute(gctx, symbol, price)
		if err != nil {
			return agentErr(models.AgentSentiment, err)
		}
		v, ok := sig.(models.SentimentSignal)
		if !ok {
			return fmt.Errorf("%w: sentiment agent returned %T", models.ErrMalformedUpstream, sig)
		}
		s = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.EnsembleResult{}, err
	}

	if req.ShockSimulation() {
		t = StressTopology(t)
	}

	return p.agg.Aggregate(AggregateInput{
		Symbol:       symbol,
		Quant:        q,
		Topology:     t,
		Sentiment:    s,
		CurrentPrice: price,
		Shock:        req.ShockSimulation(),
		At:           p.now(),
	})
}

// agentErr keeps sentinel kinds and maps anything else to unavailability.
func agentErr(kind models.AgentKind, err error) error {
	if errors.Is(err, models.ErrMalformedUpstream) || errors.Is(err, models.ErrUpstreamUnavailable) {
		return fmt.Errorf("%s agent: %w", kind, err)
	}
	return fmt.Errorf("%w: %s agent: %w", models.ErrUpstreamUnavailable, kind, err)
}

var _ domsvc.LivePredictor = (*LocalPredictor)(nil)
