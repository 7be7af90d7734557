package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"QuantPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupedGraph = `{
  "nodes": [
    {"id": "HDFCBANK", "group": 1, "risk_score": 0.6},
    {"id": "ICICIBANK", "group": 1, "risk_score": 0.7},
    {"id": "SBIN", "group": 1, "risk_score": 0.8},
    {"id": "TCS", "group": 2, "risk_score": 0.2},
    {"id": "INFY", "group": 2}
  ],
  "insights": {"clusters": [
    {"name": "Banking", "risk": "High", "members": ["HDFCBANK", "ICICIBANK", "SBIN"]},
    {"name": "IT", "risk": "low", "members": ["TCS", "INFY"]}
  ]}
}`

const linkedGraph = `{
  "nodes": [
    {"id": "A", "group": 1, "risk_score": 0.1},
    {"id": "B", "group": 1, "risk_score": 0.9},
    {"id": "C", "group": 2, "risk_score": 0.2}
  ],
  "links": [
    {"source": "A", "target": "B", "value": 1},
    {"source": "B", "target": "C", "value": 1}
  ]
}`

func TestParseGraphDefaultsToGroupWeights(t *testing.T) {
	g, err := ParseGraph([]byte(groupedGraph))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
	assert.True(t, g.Has("tcs"))

	// complete graph: every node reaches every other
	assert.InDelta(t, 1.0, g.Centrality("TCS"), 1e-12)

	// Fiedler value of this weighted complete graph is 5*0.3 = 1.5
	assert.InDelta(t, 0.15, g.Contagion(), 1e-9)

	name, tier := g.Cluster("INFY")
	assert.Equal(t, "IT", name)
	assert.Equal(t, models.ClusterRiskLow, tier)

	name, tier = g.Cluster("UNKNOWN")
	assert.Equal(t, "General", name)
	assert.Equal(t, models.ClusterRiskModerate, tier)
}

func TestParseGraphWithLinks(t *testing.T) {
	g, err := ParseGraph([]byte(linkedGraph))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, g.Centrality("A"), 1e-12)
	assert.InDelta(t, 1.0, g.Centrality("B"), 1e-12)
	// path graph P3 with unit weights has Fiedler value 1
	assert.InDelta(t, 0.1, g.Contagion(), 1e-9)

	ns := g.Neighbors("B")
	require.Len(t, ns, 2)
	assert.Equal(t, "A", ns[0].Symbol)
	assert.Equal(t, models.NeighborBullish, ns[0].Signal)
	assert.Equal(t, "C", ns[1].Symbol)
}

func TestParseGraphRejectsGarbage(t *testing.T) {
	_, err := ParseGraph([]byte(`{nope`))
	assert.Error(t, err)
}

func TestTopologyAgentHighRiskCluster(t *testing.T) {
	g, err := ParseGraph([]byte(groupedGraph))
	require.NoError(t, err)
	a := NewTopologyAgentWithGraph(g, 0.3)

	sig := a.Analyze("SBIN")
	// High cluster: 0.03 + 0.15*0.03. Neighbours HDFCBANK, ICICIBANK and INFY
	// (default risk 0.4) are bearish, TCS is bullish: 3 of 4 adds 0.02*3.
	assert.InDelta(t, 0.0945, sig.NetworkRiskPenalty, 1e-9)
	assert.InDelta(t, 1-0.0945, sig.RiskAdjustment, 1e-9)
	assert.Equal(t, "Banking", sig.ClusterName)
	assert.Equal(t, models.ClusterRiskHigh, sig.ClusterRisk)
	assert.Len(t, sig.NeighborSignals, 4)
	assert.InDelta(t, 0.3, sig.Weight, 1e-12)
}

func TestTopologyAgentBearishMajority(t *testing.T) {
	g, err := ParseGraph([]byte(`{
	  "nodes": [
	    {"id": "X", "group": 1, "risk_score": 0.1},
	    {"id": "Y", "group": 1, "risk_score": 0.9},
	    {"id": "Z", "group": 1, "risk_score": 0.8}
	  ]
	}`))
	require.NoError(t, err)

	sig := NewTopologyAgentWithGraph(g, 0.3).Analyze("X")
	// complete graph with 0.7 edges: Fiedler 2.1, contagion 0.21
	// penalty = 0.21*0.02 + 0.02*2
	assert.InDelta(t, 0.0442, sig.NetworkRiskPenalty, 1e-9)
	assert.Equal(t, models.ClusterRiskModerate, sig.ClusterRisk)
	assert.Equal(t, models.DirectionDown, sig.Stance())
}

func TestTopologyAgentUnknownSymbolIsNeutral(t *testing.T) {
	g, err := ParseGraph([]byte(groupedGraph))
	require.NoError(t, err)

	sig := NewTopologyAgentWithGraph(g, 0.3).Analyze("NOPE")
	assert.Equal(t, 1.0, sig.RiskAdjustment)
	assert.Zero(t, sig.NetworkRiskPenalty)
	assert.Equal(t, 0.5, sig.CentralityScore)
	assert.Equal(t, "General", sig.ClusterName)
	assert.Equal(t, models.ClusterRiskModerate, sig.ClusterRisk)
	assert.NotNil(t, sig.NeighborSignals)
}

func TestTopologyAgentReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(linkedGraph), 0o600))

	a := NewTopologyAgent(path, 0.3, nil)
	assert.Equal(t, 3, a.Nodes())

	require.NoError(t, os.WriteFile(path, []byte(groupedGraph), 0o600))
	require.NoError(t, a.Reload())
	assert.Equal(t, 5, a.Nodes())

	// a broken file keeps the previous graph
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	assert.Error(t, a.Reload())
	assert.Equal(t, 5, a.Nodes())

	sig, err := a.Compute(context.Background(), "TCS", 4200)
	require.NoError(t, err)
	assert.IsType(t, models.TopologySignal{}, sig)
}

func TestTopologyAgentMissingFileIsNeutral(t *testing.T) {
	a := NewTopologyAgent(filepath.Join(t.TempDir(), "absent.json"), 0.3, nil)
	assert.Zero(t, a.Nodes())
	assert.Equal(t, 1.0, a.Analyze("TCS").RiskAdjustment)
}
