package agents

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"QuantPulse/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultNodeRisk     = 0.4
	defaultNeighborRisk = 0.5
	sameGroupWeight     = 0.7
	crossGroupWeight    = 0.3
	maxNeighbors        = 5
	bullishRiskCeiling  = 0.4
)

type graphNode struct {
	ID        string      `json:"id"`
	Group     interface{} `json:"group"`
	RiskScore *float64    `json:"risk_score"`
}

type graphLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Value  *float64 `json:"value"`
}

type graphCluster struct {
	Name    string   `json:"name"`
	Risk    string   `json:"risk"`
	Members []string `json:"members"`
}

type graphFile struct {
	Nodes    []graphNode `json:"nodes"`
	Links    []graphLink `json:"links"`
	Insights struct {
		Clusters []graphCluster `json:"clusters"`
	} `json:"insights"`
}

// Graph is an immutable, pre-analysed market graph.
type Graph struct {
	ids      []string
	index    map[string]int
	risk     []float64
	adj      *mat.SymDense
	clusters []graphCluster
	fiedler  float64
}

// LoadGraph reads and analyses a graph file.
func LoadGraph(path string) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return ParseGraph(b)
}

// ParseGraph builds the adjacency matrix and its Laplacian spectrum.
// Without links, nodes in the same group are weighted 0.7 and others 0.3.
func ParseGraph(b []byte) (*Graph, error) {
	var f graphFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}

	g := &Graph{index: make(map[string]int, len(f.Nodes)), clusters: f.Insights.Clusters}
	groups := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		id := strings.ToUpper(strings.TrimSpace(n.ID))
		if id == "" {
			continue
		}
		if _, dup := g.index[id]; dup {
			continue
		}
		g.index[id] = len(g.ids)
		g.ids = append(g.ids, id)
		r := defaultNodeRisk
		if n.RiskScore != nil {
			r = *n.RiskScore
		}
		g.risk = append(g.risk, r)
		groups = append(groups, fmt.Sprint(n.Group))
	}
	if len(g.ids) == 0 {
		return g, nil
	}

	n := len(g.ids)
	g.adj = mat.NewSymDense(n, nil)
	if len(f.Links) > 0 {
		for _, l := range f.Links {
			i, iok := g.index[strings.ToUpper(l.Source)]
			j, jok := g.index[strings.ToUpper(l.Target)]
			if !iok || !jok || i == j {
				continue
			}
			v := 1.0
			if l.Value != nil {
				v = *l.Value
			}
			g.adj.SetSym(i, j, v)
		}
	} else {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				w := crossGroupWeight
				if groups[i] == groups[j] {
					w = sameGroupWeight
				}
				g.adj.SetSym(i, j, w)
			}
		}
	}

	fiedler, err := fiedlerValue(g.adj)
	if err != nil {
		return nil, err
	}
	g.fiedler = fiedler
	return g, nil
}

// fiedlerValue is the second smallest eigenvalue of L = D - A.
func fiedlerValue(adj *mat.SymDense) (float64, error) {
	n, _ := adj.Dims()
	if n < 2 {
		return 0, nil
	}
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		deg := 0.0
		for j := 0; j < n; j++ {
			if j != i {
				deg += adj.At(i, j)
				lap.SetSym(i, j, -adj.At(i, j))
			}
		}
		lap.SetSym(i, i, deg)
	}
	var es mat.EigenSym
	if ok := es.Factorize(lap, false); !ok {
		return 0, fmt.Errorf("graph laplacian eigen decomposition did not converge")
	}
	vals := es.Values(nil)
	sort.Float64s(vals)
	return vals[1], nil
}

// Len is the number of nodes.
func (g *Graph) Len() int { return len(g.ids) }

// Has reports whether symbol is a node.
func (g *Graph) Has(symbol string) bool {
	_, ok := g.index[strings.ToUpper(symbol)]
	return ok
}

// Contagion maps algebraic connectivity onto [0,1].
func (g *Graph) Contagion() float64 {
	return math.Max(0, math.Min(g.fiedler/10, 1))
}

// Centrality is degree / (n-1).
func (g *Graph) Centrality(symbol string) float64 {
	i, ok := g.index[strings.ToUpper(symbol)]
	if !ok {
		return 0
	}
	n := len(g.ids)
	if n < 2 {
		return 0
	}
	deg := 0
	for j := 0; j < n; j++ {
		if j != i && g.adj.At(i, j) > 0 {
			deg++
		}
	}
	return float64(deg) / float64(n-1)
}

// Neighbors returns up to five connected tickers in graph order.
func (g *Graph) Neighbors(symbol string) []models.NeighborSignal {
	i, ok := g.index[strings.ToUpper(symbol)]
	if !ok {
		return nil
	}
	out := make([]models.NeighborSignal, 0, maxNeighbors)
	for j := 0; j < len(g.ids) && len(out) < maxNeighbors; j++ {
		if j == i || g.adj.At(i, j) <= 0 {
			continue
		}
		r := g.risk[j]
		if math.IsNaN(r) {
			r = defaultNeighborRisk
		}
		r = math.Max(0, math.Min(r, 1))
		sig := models.NeighborBearish
		if r < bullishRiskCeiling {
			sig = models.NeighborBullish
		}
		out = append(out, models.NeighborSignal{Symbol: g.ids[j], Signal: sig, RiskScore: r})
	}
	return out
}

// Cluster returns the first cluster listing symbol, or "General"/Moderate.
func (g *Graph) Cluster(symbol string) (string, models.ClusterRisk) {
	s := strings.ToUpper(symbol)
	for _, c := range g.clusters {
		for _, m := range c.Members {
			if strings.ToUpper(m) != s {
				continue
			}
			risk, ok := models.ParseClusterRisk(c.Risk)
			if !ok {
				risk = models.ClusterRiskModerate
			}
			name := c.Name
			if name == "" {
				name = "Unknown"
			}
			return name, risk
		}
	}
	return "General", models.ClusterRiskModerate
}
