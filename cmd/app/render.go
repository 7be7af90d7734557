package main

import (
	"fmt"
	"strings"

	"QuantPulse/internal/domain/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(22)

	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	sidewaysStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
)

func directionStyle(d models.Direction) lipgloss.Style {
	switch d {
	case models.DirectionUp:
		return upStyle
	case models.DirectionDown:
		return downStyle
	default:
		return sidewaysStyle
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

// renderResult formats a presented result for the terminal.
func renderResult(r models.EnsembleResult, source models.Provenance) string {
	title := fmt.Sprintf("%s  (%s)", r.Symbol, source)
	if r.ShockSimulationActive {
		title += "  SHOCK"
	}

	q, t, s := r.Components.Quant, r.Components.Topology, r.Components.Sentiment
	lines := []string{
		row("Current price", fmt.Sprintf("%.2f", r.CurrentPrice)),
		row("Prediction", fmt.Sprintf("%.2f", r.WeightedPrediction)),
		row("Change", directionStyle(r.Direction).Render(fmt.Sprintf("%s %+.2f%%", r.Direction, r.PriceChangePercent))),
		row("Confidence", fmt.Sprintf("%.1f", r.ConfidenceScore)),
		"",
		row("Quant base", fmt.Sprintf("%.2f  %s  conf %.1f", q.BaseForecast, q.Direction, q.Confidence)),
		row("Topology", fmt.Sprintf("x%.4f  %s/%s", t.RiskAdjustment, nonEmpty(t.ClusterName, "-"), t.ClusterRisk)),
		row("Sentiment", fmt.Sprintf("x%.4f  %s", s.SentimentMultiplier, s.SentimentLabel)),
		row("Total adjustment", fmt.Sprintf("%+.2f%%", r.Comparison.TotalAdjustmentPct)),
	}
	if len(t.NeighborSignals) > 0 {
		ns := make([]string, 0, len(t.NeighborSignals))
		for _, n := range t.NeighborSignals {
		ns = append(ns, fmt.Sprintf("%s:%s", n.Symbol, n.Signal))
		}
		lines = append(lines, row("Neighbours", strings.Join(ns, " ")))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		boxStyle.Render(strings.Join(lines, "\n")),
		noteStyle.Render(r.Disclaimer),
	)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
