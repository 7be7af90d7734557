package models

// ClusterRisk is the risk tier of a ticker's market cluster.
type ClusterRisk string

const (
	ClusterRiskLow      ClusterRisk = "Low"
	ClusterRiskModerate ClusterRisk = "Moderate"
	ClusterRiskHigh     ClusterRisk = "High"
	ClusterRiskCritical ClusterRisk = "Critical"
)

// Rank orders tiers from 0 (Low) to 3 (Critical). Unknown tiers rank -1.
func (c ClusterRisk) Rank() int {
	switch c {
	case ClusterRiskLow:
		return 0
	case ClusterRiskModerate:
		return 1
	case ClusterRiskHigh:
		return 2
	case ClusterRiskCritical:
		return 3
	}
	return -1
}

// Valid reports whether c is a known tier.
func (c ClusterRisk) Valid() bool { return c.Rank() >= 0 }

// ParseClusterRisk maps a free-form label ("high", "CRITICAL") to a tier.
func ParseClusterRisk(s string) (ClusterRisk, bool) {
	switch s {
	case "Low", "low", "LOW":
		return ClusterRiskLow, true
	case "Moderate", "moderate", "MODERATE", "Medium", "medium":
		return ClusterRiskModerate, true
	case "High", "high", "HIGH":
		return ClusterRiskHigh, true
	case "Critical", "critical", "CRITICAL":
		return ClusterRiskCritical, true
	}
	return "", false
}

// ClusterRiskFor is the minimum tier implied by a network penalty and contagion risk.
// It is monotone in both arguments.
func ClusterRiskFor(penalty, contagion float64) ClusterRisk {
	switch {
	case penalty >= 0.15 || contagion >= 0.8:
		return ClusterRiskCritical
	case penalty >= 0.08 || contagion >= 0.6:
		return ClusterRiskHigh
	case penalty >= 0.02 || contagion >= 0.3:
		return ClusterRiskModerate
	default:
		return ClusterRiskLow
	}
}

// EscalateClusterRisk returns the higher of the declared tier and the implied one.
func EscalateClusterRisk(declared ClusterRisk, penalty, contagion float64) ClusterRisk {
	implied := ClusterRiskFor(penalty, contagion)
	if declared.Rank() >= implied.Rank() {
		return declared
	}
	return implied
}

// SentimentLabel is the five-step label for a consensus score.
type SentimentLabel string

const (
	SentimentVeryBad  SentimentLabel = "VeryBad"
	SentimentBad      SentimentLabel = "Bad"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentGood     SentimentLabel = "Good"
	SentimentVeryGood SentimentLabel = "VeryGood"
)

// SentimentLabelFor is the single mapping from consensus score to label.
func SentimentLabelFor(score float64) SentimentLabel {
	switch {
	case score <= -0.5:
		return SentimentVeryBad
	case score <= -0.1:
		return SentimentBad
	case score < 0.1:
		return SentimentNeutral
	case score < 0.5:
		return SentimentGood
	default:
		return SentimentVeryGood
	}
}

// Valid reports whether l is a known label.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentVeryBad, SentimentBad, SentimentNeutral, SentimentGood, SentimentVeryGood:
		return true
	}
	return false
}
