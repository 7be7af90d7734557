package models

// AgentKind identifies a signal source in the ensemble.
type AgentKind string

const (
	AgentQuant     AgentKind = "quant"
	AgentTopology  AgentKind = "topology"
	AgentSentiment AgentKind = "sentiment"
)

// Signal is the common view of a component output used for confidence blending.
type Signal interface {
	Kind() AgentKind
	// Share is the display weight of the component in the ensemble.
	Share() float64
	// Stance is the directional call implied by the component.
	Stance() Direction
	// ConfidencePct is the component confidence in [0,100].
	ConfidencePct() float64
}

// QuantSignal is the base quantitative forecast.
type QuantSignal struct {
	BaseForecast  float64   `json:"base_forecast" validate:"gt=0"`
	Confidence    float64   `json:"confidence" validate:"gte=0,lte=100"`
	Direction     Direction `json:"direction" validate:"oneof=UP DOWN SIDEWAYS"`
	Volatility    float64   `json:"volatility" validate:"gte=0"`
	TrendStrength float64   `json:"trend_strength" validate:"gte=0,lte=1"`
	Weight        float64   `json:"weight" validate:"gte=0,lte=1"`
}

func (q QuantSignal) Kind() AgentKind        { return AgentQuant }
func (q QuantSignal) Share() float64         { return q.Weight }
func (q QuantSignal) Stance() Direction      { return q.Direction }
func (q QuantSignal) ConfidencePct() float64 { return q.Confidence }

// NeighborStance is the label attached to a correlated ticker.
type NeighborStance string

const (
	NeighborBullish NeighborStance = "bullish"
	NeighborBearish NeighborStance = "bearish"
)

// NeighborSignal describes one correlated ticker in the market graph.
type NeighborSignal struct {
	Symbol    string         `json:"symbol" validate:"required"`
	Signal    NeighborStance `json:"signal" validate:"oneof=bullish bearish"`
	RiskScore float64        `json:"risk_score" validate:"gte=0,lte=1"`
}

// TopologySignal is the network risk adjustment derived from the market graph.
type TopologySignal struct {
	RiskAdjustment     float64          `json:"risk_adjustment" validate:"gt=0,lte=1"`
	AdjustedPrice      float64          `json:"adjusted_price" validate:"gte=0"`
	NetworkRiskPenalty float64          `json:"network_risk_penalty" validate:"gte=0,lte=1"`
	ClusterName        string           `json:"cluster_name"`
	ClusterRisk        ClusterRisk      `json:"cluster_risk" validate:"oneof=Low Moderate High Critical"`
	CentralityScore    float64          `json:"centrality_score" validate:"gte=0,lte=1"`
	ContagionRisk      float64          `json:"contagion_risk" validate:"gte=0,lte=1"`
	NeighborSignals    []NeighborSignal `json:"neighbor_signals" validate:"dive"`
	Weight             float64          `json:"weight" validate:"gte=0,lte=1"`
}

func (t TopologySignal) Kind() AgentKind { return AgentTopology }
func (t TopologySignal) Share() float64  { return t.Weight }

// Stance is DOWN for high-risk clusters or a bearish neighbourhood, UP for a bullish one.
func (t TopologySignal) Stance() Direction {
	bull, bear := t.NeighborCounts()
	switch {
	case t.ClusterRisk.Rank() >= ClusterRiskHigh.Rank() || bear > bull:
		return DirectionDown
	case bull > bear:
		return DirectionUp
	default:
		return DirectionSideways
	}
}

// ConfidencePct follows the network penalty: no penalty means full confidence.
func (t TopologySignal) ConfidencePct() float64 { return (1 - t.NetworkRiskPenalty) * 100 }

// NeighborCounts returns the number of bullish and bearish neighbours.
func (t TopologySignal) NeighborCounts() (bullish, bearish int) {
	for _, n := range t.NeighborSignals {
		if n.Signal == NeighborBearish {
			bearish++
		} else {
			bullish++
		}
	}
	return bullish, bearish
}

// SentimentSignal is the news/market sentiment consensus.
type SentimentSignal struct {
	SentimentMultiplier float64        `json:"sentiment_multiplier" validate:"gt=0"`
	ConsensusScore      float64        `json:"consensus_score" validate:"gte=-1,lte=1"`
	SentimentLabel      SentimentLabel `json:"sentiment_label" validate:"oneof=VeryBad Bad Neutral Good VeryGood"`
	BullBearRatio       float64        `json:"bull_bear_ratio" validate:"gte=0"`
	Confidence          float64        `json:"confidence" validate:"gte=0,lte=100"`
	Weight              float64        `json:"weight" validate:"gte=0,lte=1"`
}

func (s SentimentSignal) Kind() AgentKind        { return AgentSentiment }
func (s SentimentSignal) Share() float64         { return s.Weight }
func (s SentimentSignal) ConfidencePct() float64 { return s.Confidence }

func (s SentimentSignal) Stance() Direction {
	switch s.SentimentLabel {
	case SentimentGood, SentimentVeryGood:
		return DirectionUp
	case SentimentBad, SentimentVeryBad:
		return DirectionDown
	default:
		return DirectionSideways
	}
}

var (
	_ Signal = QuantSignal{}
	_ Signal = TopologySignal{}
	_ Signal = SentimentSignal{}
)
