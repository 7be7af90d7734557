package usecase

import (
	"math"

	"QuantPulse/internal/domain/models"
)

// Stress scenario applied to the topology signal when shock simulation is requested.
const (
	shockRiskFactor    = 0.9
	shockPenaltyBump   = 0.1
	shockContagionBump = 0.3
)

// StressTopology degrades a topology signal to the market-shock scenario.
// The cluster tier is escalated so it stays consistent with the new penalty and contagion.
func StressTopology(t models.TopologySignal) models.TopologySignal {
	t.RiskAdjustment *= shockRiskFactor
	t.NetworkRiskPenalty = math.Min(t.NetworkRiskPenalty+shockPenaltyBump, 1)
	t.ContagionRisk = math.Min(t.ContagionRisk+shockContagionBump, 1)
	t.ClusterRisk = models.EscalateClusterRisk(t.ClusterRisk, t.NetworkRiskPenalty, t.ContagionRisk)
	if len(t.NeighborSignals) > 0 {
		ns := make([]models.NeighborSignal, len(t.NeighborSignals))
		copy(ns, t.NeighborSignals)
		t.NeighborSignals = ns
	}
	return t
}
