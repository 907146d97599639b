package engine

import "github.com/stwalsh4118/choropleth/internal/models"

// Presentation constants. Unloaded, baseline and active styles must stay
// visually distinct from one another.
var (
	// UnloadedStyle is used when no data is loaded or no metric is selected.
	UnloadedStyle = models.StyleDescriptor{
		FillColor:    models.UnloadedFillColor,
		StrokeColor:  "#333333",
		StrokeWeight: 0.5,
		Opacity:      1,
		FillOpacity:  0.3,
	}

	baselineStroke = models.StyleDescriptor{
		StrokeColor:  "#333333",
		StrokeWeight: 0.5,
		Opacity:      1,
		FillOpacity:  0.7,
	}

	activeStroke = models.StyleDescriptor{
		StrokeColor:  "#FFFFFF",
		StrokeWeight: 3,
		Opacity:      1,
		FillOpacity:  0.9,
	}
)

// ResolveStyle computes the style of one feature for the current selection.
func ResolveStyle(geoid string, index *models.MetricIndex, registry *models.DatasetRegistry, state SelectionState) models.StyleDescriptor {
	if index == nil || registry == nil || state.Phase() != PhaseDatasetAndMetric {
		return UnloadedStyle
	}
	scale, ok := registry.Scale(state.DatasetID, state.MetricID)
	if !ok {
		return UnloadedStyle
	}

	style := baselineStroke
	if state.FeatureID == geoid {
		style = activeStroke
	}
	value, present := index.Lookup(geoid, state.DatasetID, state.MetricID)
	style.FillColor = Classify(value, present, scale)
	return style
}

// ResolveStyles computes the style of every feature in layer, keyed by geoid.
func ResolveStyles(layer *models.GeoLayer, index *models.MetricIndex, registry *models.DatasetRegistry, state SelectionState) map[string]models.StyleDescriptor {
	styles := make(map[string]models.StyleDescriptor, layer.Len())
	for _, f := range layer.Features() {
		styles[f.GeoID] = ResolveStyle(f.GeoID, index, registry, state)
	}
	return styles
}
