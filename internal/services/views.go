package services

import (
	"github.com/stwalsh4118/choropleth/internal/engine"
	"github.com/stwalsh4118/choropleth/internal/loader"
	"github.com/stwalsh4118/choropleth/internal/models"
)

// ReloadResult reports the outcome of one reload.
type ReloadResult struct {
	Accepted bool          `json:"accepted"`
	Token    uint64        `json:"token"`
	Status   loader.Status `json:"status"`
}

// MapParams is the initial map view. DataBounds is the extent of the
// loaded geometry, when there is any.
type MapParams struct {
	Center             [2]float64           `json:"mapCenter"`
	Zoom               int                  `json:"mapZoom"`
	MinZoom            int                  `json:"minZoom"`
	MaxBounds          models.LatLngBounds  `json:"maxBounds"`
	MaxBoundsViscosity float64              `json:"maxBoundsViscosity"`
	DataBounds         *models.LatLngBounds `json:"dataBounds,omitempty"`
}

// DatasetSummary describes one dataset and its selectable metrics.
type DatasetSummary struct {
	ID      string          `json:"id"`
	Label   string          `json:"label"`
	Metrics []MetricSummary `json:"metrics"`
}

// MetricSummary describes one selectable metric column.
type MetricSummary struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Buckets int    `json:"buckets"`
}

// SelectionView is the selection state as served to clients.
type SelectionView struct {
	engine.SelectionState
	Phase string `json:"phase"`
}

func newSelectionView(state engine.SelectionState) SelectionView {
	return SelectionView{SelectionState: state, Phase: state.Phase().String()}
}

// StyleSet holds the style of every feature under one selection.
type StyleSet struct {
	Visible   bool                              `json:"visible"`
	Selection SelectionView                     `json:"selection"`
	Styles    map[string]models.StyleDescriptor `json:"styles"`
}

// FeatureDetail is the inspection view of one feature.
type FeatureDetail struct {
	GeoID      string                        `json:"geoid"`
	InGeometry bool                          `json:"inGeometry"`
	Properties models.BlockGroupProperties   `json:"properties"`
	GeoInfo    models.GeoInfo                `json:"geoinfo"`
	Metrics    map[string]map[string]float64 `json:"metrics"`
	Bounds     *models.LatLngBounds          `json:"bounds,omitempty"`
	Active     bool                          `json:"active"`
	Style      models.StyleDescriptor        `json:"style"`
	Current    *CurrentValue                 `json:"current,omitempty"`
}

// CurrentValue is a feature's value for the selected dataset column.
// Value is nil when the feature has no data.
type CurrentValue struct {
	Dataset string       `json:"dataset"`
	Metric  string       `json:"metric"`
	Value   *float64     `json:"value"`
	Color   models.Color `json:"color"`
}

// Classification is the result of classifying an arbitrary value.
type Classification struct {
	Dataset  string       `json:"dataset"`
	Metric   string       `json:"metric"`
	Value    float64      `json:"value"`
	Color    models.Color `json:"color"`
	Overflow bool         `json:"overflow"`
}
