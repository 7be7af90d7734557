package agents

import (
	"context"
	"math"
	"sync/atomic"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
	applogger "QuantPulse/pkg/logger"
)

// TopologyAgent turns the market graph into a network risk adjustment.
// The graph is swapped atomically on Reload so readers never block.
type TopologyAgent struct {
	path   string
	weight float64
	graph  atomic.Pointer[Graph]
	logger *applogger.Logger
}

// NewTopologyAgent loads the graph at path. A missing or broken file leaves the
// agent in neutral mode and is logged; Reload can recover later.
func NewTopologyAgent(path string, weight float64, logger *applogger.Logger) *TopologyAgent {
	a := &TopologyAgent{path: path, weight: weight, logger: logger}
	if err := a.Reload(); err != nil && logger != nil {
		logger.Warn("market graph not loaded, topology agent is neutral",
			applogger.String("path", path), applogger.Error(err))
	}
	return a
}

// NewTopologyAgentWithGraph is used when the graph is built elsewhere.
func NewTopologyAgentWithGraph(g *Graph, weight float64) *TopologyAgent {
	a := &TopologyAgent{weight: weight}
	a.graph.Store(g)
	return a
}

func (a *TopologyAgent) Kind() models.AgentKind { return models.AgentTopology }

// Reload re-reads the graph file. On failure the previous graph stays active.
func (a *TopologyAgent) Reload() error {
	if a.path == "" {
		return nil
	}
	g, err := LoadGraph(a.path)
	if err != nil {
		return err
	}
	a.graph.Store(g)
	if a.logger != nil {
		a.logger.Info("market graph loaded",
			applogger.String("path", a.path),
			applogger.Int("nodes", g.Len()),
			applogger.Float64("contagion", g.Contagion()),
		)
	}
	return nil
}

// Nodes reports the size of the active graph.
func (a *TopologyAgent) Nodes() int {
	if g := a.graph.Load(); g != nil {
		return g.Len()
	}
	return 0
}

func (a *TopologyAgent) Compute(ctx context.Context, symbol string, _ float64) (models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Analyze(symbol), nil
}

// Analyze computes the signal for symbol. Unknown symbols get the neutral default.
func (a *TopologyAgent) Analyze(symbol string) models.TopologySignal {
	g := a.graph.Load()
	if g == nil || !g.Has(symbol) {
		return models.TopologySignal{
			RiskAdjustment:  1,
			ClusterName:     "General",
			ClusterRisk:     models.ClusterRiskModerate,
			CentralityScore: 0.5,
			NeighborSignals: []models.NeighborSignal{},
			Weight:          a.weight,
		}
	}

	contagion := g.Contagion()
	name, tier := g.Cluster(symbol)
	neighbors := g.Neighbors(symbol)

	var penalty float64
	switch tier {
	case models.ClusterRiskCritical:
		penalty = 0.05 + contagion*0.05
	case models.ClusterRiskHigh:
		penalty = 0.03 + contagion*0.03
	default:
		penalty = contagion * 0.02
	}
	_, bearish := countStances(neighbors)
	if bearish*2 > len(neighbors) {
		penalty += 0.02 * float64(bearish)
	}
	penalty = math.Min(penalty, 1)

	return models.TopologySignal{
		RiskAdjustment:     1 - penalty,
		NetworkRiskPenalty: penalty,
		ClusterName:        name,
		ClusterRisk:        models.EscalateClusterRisk(tier, penalty, contagion),
		CentralityScore:    g.Centrality(symbol),
		ContagionRisk:      contagion,
		NeighborSignals:    neighbors,
		Weight:             a.weight,
	}
}

func countStances(ns []models.NeighborSignal) (bullish, bearish int) {
	return models.TopologySignal{NeighborSignals: ns}.NeighborCounts()
}

var _ domsvc.SignalSource = (*TopologyAgent)(nil)
