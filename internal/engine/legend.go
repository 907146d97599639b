package engine

import (
	"strconv"

	"github.com/stwalsh4118/choropleth/internal/models"
)

// Legend is the legend for the current selection.
type Legend struct {
	Title   string               `json:"title"`
	Entries []models.LegendEntry `json:"entries"`
}

// BuildLegend lists the buckets of scale from highest to lowest.
//
// The top bucket reads "> t", the bottom bucket "t" and the others
// "t[i]-(t[i+1]-1)". Ranges assume integer metric granularity.
func BuildLegend(scale models.ThresholdScale) []models.LegendEntry {
	n := len(scale.Thresholds)
	entries := make([]models.LegendEntry, 0, n)
	for i := n - 1; i >= 0; i-- {
		low := scale.Thresholds[i]

		var label string
		switch {
		case i == n-1:
			label = "> " + formatBreak(low)
		case i == 0:
			label = formatBreak(low)
		default:
			label = formatBreak(low) + "-" + formatBreak(scale.Thresholds[i+1]-1)
		}

		color := models.OverflowColor
		if i < len(scale.Colors) {
			color = scale.Colors[i]
		}
		entries = append(entries, models.LegendEntry{Label: label, Color: color})
	}
	return entries
}

// LegendFor builds the legend for the selected dataset column.
// It is empty unless both a dataset and one of its metrics are selected.
func LegendFor(registry *models.DatasetRegistry, state SelectionState) Legend {
	if state.Phase() != PhaseDatasetAndMetric {
		return Legend{Entries: []models.LegendEntry{}}
	}
	scale, ok := registry.Scale(state.DatasetID, state.MetricID)
	if !ok {
		return Legend{Entries: []models.LegendEntry{}}
	}

	title := scale.Label
	if title == "" {
		title = state.MetricID
	}
	return Legend{Title: title, Entries: BuildLegend(scale)}
}

func formatBreak(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
