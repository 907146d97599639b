// Package engine binds metric values to colors, legends and styles, and
// holds the selection state machine that drives feature highlighting.
// Everything here is free of I/O; registries and indexes are passed in.
package engine

import (
	"math"
	"sort"

	"github.com/stwalsh4118/choropleth/internal/models"
)

// Classify maps an optional value to its bucket color.
//
// An absent value (ok == false) or NaN yields models.NoDataColor. Otherwise
// the color of the first threshold t with value <= t is returned, so a
// value equal to a break falls into the lower bucket. Values above every
// threshold yield models.OverflowColor.
func Classify(value float64, ok bool, scale models.ThresholdScale) models.Color {
	if !ok || math.IsNaN(value) {
		return models.NoDataColor
	}
	return ClassifyValue(value, scale)
}

// ClassifyValue classifies a present value. See Classify.
func ClassifyValue(value float64, scale models.ThresholdScale) models.Color {
	// SearchFloat64s finds the first i with thresholds[i] >= value,
	// which is the linear "value <= thresholds[i]" scan for ascending input.
	i := sort.SearchFloat64s(scale.Thresholds, value)
	if i >= len(scale.Thresholds) || i >= len(scale.Colors) {
		return models.OverflowColor
	}
	return scale.Colors[i]
}
