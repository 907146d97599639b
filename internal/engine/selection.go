package engine

import "github.com/stwalsh4118/choropleth/internal/models"

// Phase is the state of the (dataset, metric) selection axis.
type Phase int

const (
	PhaseUnselected Phase = iota
	PhaseDatasetOnly
	PhaseDatasetAndMetric
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDatasetOnly:
		return "dataset_only"
	case PhaseDatasetAndMetric:
		return "dataset_and_metric"
	default:
		return "unselected"
	}
}

// SelectionState is the user's current selection. Empty ids mean absent.
//
// The dataset/metric axis and the active feature axis are independent:
// no event on one axis changes the other.
type SelectionState struct {
	DatasetID      string `json:"datasetId,omitempty"`
	MetricID       string `json:"metricId,omitempty"`
	FeatureID      string `json:"featureId,omitempty"`
	OverlayVisible bool   `json:"overlayVisible"`
}

// NewSelectionState returns the initial state: nothing selected, overlay shown.
func NewSelectionState() SelectionState {
	return SelectionState{OverlayVisible: true}
}

// Phase reports which (dataset, metric) state the selection is in.
func (s SelectionState) Phase() Phase {
	switch {
	case s.DatasetID == "":
		return PhaseUnselected
	case s.MetricID == "":
		return PhaseDatasetOnly
	default:
		return PhaseDatasetAndMetric
	}
}

// HasActiveFeature reports whether a feature is active.
func (s SelectionState) HasActiveFeature() bool {
	return s.FeatureID != ""
}

// Event is a discrete UI event applied to a SelectionState.
type Event interface {
	event()
}

// SelectDataset switches the active dataset and clears the metric.
type SelectDataset struct{ DatasetID string }

// SelectMetric picks a column of the active dataset.
type SelectMetric struct{ MetricID string }

// ClickFeature makes a feature the single active feature.
type ClickFeature struct{ GeoID string }

// ClickBackground clears the active feature.
type ClickBackground struct{}

// RegistryReloaded revalidates the selection against a new registry.
type RegistryReloaded struct{}

// ToggleOverlay shows or hides the choropleth overlay.
type ToggleOverlay struct{}

func (SelectDataset) event()    {}
func (SelectMetric) event()     {}
func (ClickFeature) event()     {}
func (ClickBackground) event()  {}
func (RegistryReloaded) event() {}
func (ToggleOverlay) event()    {}

// Apply returns the state that results from applying ev to s.
// Invalid selections are ignored rather than reported: the returned state is
// always valid against registry.
func Apply(s SelectionState, ev Event, registry *models.DatasetRegistry) SelectionState {
	switch e := ev.(type) {
	case SelectDataset:
		if _, ok := registry.Dataset(e.DatasetID); !ok {
			return s
		}
		s.DatasetID = e.DatasetID
		s.MetricID = ""
	case SelectMetric:
		if s.DatasetID == "" || !registry.HasMetric(s.DatasetID, e.MetricID) {
			return s
		}
		s.MetricID = e.MetricID
	case ClickFeature:
		if e.GeoID == "" {
			return s
		}
		s.FeatureID = e.GeoID
	case ClickBackground:
		s.FeatureID = ""
	case RegistryReloaded:
		if _, ok := registry.Dataset(s.DatasetID); !ok {
			s.DatasetID = ""
			s.MetricID = ""
		} else if s.MetricID != "" && !registry.HasMetric(s.DatasetID, s.MetricID) {
			s.MetricID = ""
		}
	case ToggleOverlay:
		s.OverlayVisible = !s.OverlayVisible
	}
	return s
}
