package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/choropleth/internal/models"
)

func TestBuildLegend(t *testing.T) {
	entries := BuildLegend(computersScale)

	require.Len(t, entries, len(computersScale.Thresholds))

	// Highest bucket first
	assert.Equal(t, models.LegendEntry{Label: "> 100", Color: "#800026"}, entries[0])
	assert.Equal(t, models.LegendEntry{Label: "0", Color: "#FFEDA0"}, entries[len(entries)-1])

	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"> 100", "75-99", "50-74", "25-49", "10-24", "5-9", "1-4", "0"}, labels)
}

func TestBuildLegend_InteriorBucket(t *testing.T) {
	entries := BuildLegend(computersScale)

	// Bucket index 2 (values 5 and 10) sits at position len-1-2
	bucket := entries[len(entries)-1-2]
	assert.Equal(t, "5-9", bucket.Label)
	assert.Equal(t, models.Color("#FEB24C"), bucket.Color)
}

func TestBuildLegend_EdgeCases(t *testing.T) {
	t.Run("empty scale", func(t *testing.T) {
		assert.Empty(t, BuildLegend(models.ThresholdScale{}))
	})

	t.Run("single threshold is the top bucket", func(t *testing.T) {
		entries := BuildLegend(models.ThresholdScale{
			Thresholds: []float64{10},
			Colors:     []models.Color{"#123456"},
		})
		require.Len(t, entries, 1)
		assert.Equal(t, "> 10", entries[0].Label)
	})

	t.Run("fractional breaks", func(t *testing.T) {
		entries := BuildLegend(models.ThresholdScale{
			Thresholds: []float64{0.5, 2.5, 10},
			Colors:     []models.Color{"#111111", "#222222", "#444444"},
		})
		require.Len(t, entries, 3)
		assert.Equal(t, "2.5-9", entries[1].Label)
		assert.Equal(t, "0.5", entries[2].Label)
	})

	t.Run("missing colors fall back to overflow", func(t *testing.T) {
		entries := BuildLegend(models.ThresholdScale{
			Thresholds: []float64{1, 2},
			Colors:     []models.Color{"#111111"},
		})
		require.Len(t, entries, 2)
		assert.Equal(t, models.OverflowColor, entries[0].Color)
	})
}

func TestLegendFor(t *testing.T) {
	registry := testRegistry()

	t.Run("empty when unselected", func(t *testing.T) {
		legend := LegendFor(registry, NewSelectionState())
		assert.Empty(t, legend.Entries)
		assert.Empty(t, legend.Title)
	})

	t.Run("empty with dataset only", func(t *testing.T) {
		state := NewSelectionState()
		state.DatasetID = "computers"
		assert.Empty(t, LegendFor(registry, state).Entries)
	})

	t.Run("uses scale label as title", func(t *testing.T) {
		state := SelectionState{DatasetID: "computers", MetricID: "No Computer"}
		legend := LegendFor(registry, state)
		assert.Equal(t, "Households without computers", legend.Title)
		assert.Len(t, legend.Entries, 8)
	})

	t.Run("falls back to metric id as title", func(t *testing.T) {
		state := SelectionState{DatasetID: "tenure", MetricID: "Renter occupied"}
		legend := LegendFor(registry, state)
		assert.Equal(t, "Renter occupied", legend.Title)
	})

	t.Run("empty when registry is nil", func(t *testing.T) {
		state := SelectionState{DatasetID: "computers", MetricID: "No Computer"}
		assert.Empty(t, LegendFor(nil, state).Entries)
	})
}
