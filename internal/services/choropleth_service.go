package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/stwalsh4118/choropleth/internal/engine"
	"github.com/stwalsh4118/choropleth/internal/loader"
	"github.com/stwalsh4118/choropleth/internal/logger"
	"github.com/stwalsh4118/choropleth/internal/models"
)

// Service-level errors
var (
	ErrNotReady        = errors.New("no data has been loaded yet")
	ErrFeatureNotFound = errors.New("feature not found")
	ErrUnknownScale    = errors.New("no threshold scale for dataset metric")
	ErrInvalidValue    = errors.New("value must be a finite number")
)

// SnapshotLoader produces a complete snapshot of the three inputs.
type SnapshotLoader interface {
	Load(ctx context.Context) (*loader.Snapshot, error)
}

// ChoroplethService defines the choropleth business operations: reloading
// data, driving the selection and rendering styles and legends from it.
type ChoroplethService interface {
	// Reload loads all inputs and publishes them unless a newer reload
	// started meanwhile. On failure the previous snapshot stays published.
	Reload(ctx context.Context) (ReloadResult, error)

	// Status reports the store state.
	Status() loader.Status

	// Ready reports whether a snapshot has been published.
	Ready() bool

	// MapParams returns the initial map view.
	MapParams() MapParams

	// Datasets lists the registry. Returns ErrNotReady before the first load.
	Datasets() ([]DatasetSummary, error)

	Selection() SelectionView
	SelectDataset(datasetID string) SelectionView
	SelectMetric(metricID string) SelectionView
	ToggleOverlay() SelectionView
	ClearFeature() SelectionView

	// SelectFeature activates a loaded feature and returns the focus request.
	// Returns ErrNotReady before the first load and ErrFeatureNotFound for
	// geoids absent from the geometry.
	SelectFeature(geoid string) (SelectionView, engine.FocusRequest, error)

	// Legend returns the legend of the current selection.
	Legend() (engine.Legend, error)

	// Styles returns one style per loaded feature.
	Styles() (StyleSet, error)

	// Feature returns everything known about one feature.
	Feature(geoid string) (*FeatureDetail, error)

	// Classify colors an arbitrary value with a dataset column's scale.
	Classify(datasetID, metricID string, value float64) (*Classification, error)
}

// Options configures a ChoroplethService.
type Options struct {
	// DefaultDataset and DefaultMetric are selected once, after the first
	// successful load. Either may be empty.
	DefaultDataset string
	DefaultMetric  string
	Map            MapParams
}

// choroplethService is the concrete implementation of ChoroplethService.
type choroplethService struct {
	store      *loader.Store
	loader     SnapshotLoader
	controller *engine.Controller
	opts       Options
	log        *logger.Logger

	defaultsOnce sync.Once
}

// NewChoroplethService creates a new instance of ChoroplethService.
func NewChoroplethService(store *loader.Store, l SnapshotLoader, opts Options, log *logger.Logger) ChoroplethService {
	return &choroplethService{
		store:      store,
		loader:     l,
		controller: engine.NewController(store),
		opts:       opts,
		log:        log,
	}
}

// Reload runs one tokened load. A load superseded by a newer one is
// discarded and reported with Accepted=false; that is not an error.
func (s *choroplethService) Reload(ctx context.Context) (ReloadResult, error) {
	token := s.store.Begin()
	s.log.Info("Reloading data", map[string]interface{}{
		"token": token,
	})

	snap, err := s.loader.Load(ctx)
	if err != nil {
		if !s.store.Fail(token, err) {
			s.log.Debug("Discarding failure of superseded reload", map[string]interface{}{
				"token": token,
			})
			return ReloadResult{Token: token, Status: s.store.Status()}, nil
		}
		s.log.Error("Reload failed", err, map[string]interface{}{
			"token":          token,
			"keeps_previous": s.store.Snapshot() != nil,
		})
		return ReloadResult{Token: token, Status: s.store.Status()}, fmt.Errorf("reload data: %w", err)
	}

	if !s.store.Publish(token, snap) {
		s.log.Debug("Discarding superseded reload", map[string]interface{}{
			"token": token,
		})
		return ReloadResult{Token: token, Status: s.store.Status()}, nil
	}

	for _, issue := range snap.Issues {
		s.log.Warn("Dataset column rejected", map[string]interface{}{
			"dataset": issue.DatasetID,
			"metric":  issue.MetricID,
			"reason":  issue.Reason,
		})
	}

	state := s.controller.OnRegistryReloaded()
	s.defaultsOnce.Do(s.applyDefaults)

	s.log.Info("Data reloaded", map[string]interface{}{
		"token":    token,
		"features": snap.Geometry.Len(),
		"records":  snap.Metrics.Len(),
		"datasets": snap.Registry.Len(),
		"issues":   len(snap.Issues),
		"dataset":  state.DatasetID,
		"metric":   state.MetricID,
	})

	return ReloadResult{Accepted: true, Token: token, Status: s.store.Status()}, nil
}

func (s *choroplethService) applyDefaults() {
	if s.opts.DefaultDataset == "" {
		return
	}
	// Never override a selection made while the first load was running
	if s.controller.State().Phase() != engine.PhaseUnselected {
		return
	}

	state := s.controller.OnDatasetChange(s.opts.DefaultDataset)
	if state.DatasetID != s.opts.DefaultDataset {
		s.log.Warn("Default dataset is not in the registry", map[string]interface{}{
			"dataset": s.opts.DefaultDataset,
		})
		return
	}
	if s.opts.DefaultMetric == "" {
		return
	}
	state = s.controller.OnMetricChange(s.opts.DefaultMetric)
	if state.MetricID != s.opts.DefaultMetric {
		s.log.Warn("Default metric is not a column of the default dataset", map[string]interface{}{
			"dataset": s.opts.DefaultDataset,
			"metric":  s.opts.DefaultMetric,
		})
	}
}

// Status reports the store state.
func (s *choroplethService) Status() loader.Status {
	return s.store.Status()
}

// Ready reports whether a snapshot has been published.
func (s *choroplethService) Ready() bool {
	return s.store.Snapshot() != nil
}

// MapParams returns the configured view plus the bounds of the loaded geometry.
func (s *choroplethService) MapParams() MapParams {
	params := s.opts.Map
	if layer := s.store.Geometry(); layer.Len() > 0 {
		b := models.LatLngBoundsFrom(layer.Bound())
		params.DataBounds = &b
	}
	return params
}

// Datasets lists every dataset with its usable columns.
func (s *choroplethService) Datasets() ([]DatasetSummary, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrNotReady
	}

	ids := snap.Registry.IDs()
	summaries := make([]DatasetSummary, 0, len(ids))
	for _, id := range ids {
		def, _ := snap.Registry.Dataset(id)
		summary := DatasetSummary{ID: def.ID, Label: def.Label, Metrics: []MetricSummary{}}
		for _, column := range def.Columns() {
			scale := def.ColumnThresholds[column]
			summary.Metrics = append(summary.Metrics, MetricSummary{
				ID:      column,
				Label:   scale.Label,
				Buckets: len(scale.Thresholds),
			})
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Selection returns the current selection.
func (s *choroplethService) Selection() SelectionView {
	return newSelectionView(s.controller.State())
}

// SelectDataset selects a dataset and resets the metric. Unknown ids are ignored.
func (s *choroplethService) SelectDataset(datasetID string) SelectionView {
	state := s.controller.OnDatasetChange(datasetID)
	if state.DatasetID != datasetID {
		s.log.Debug("Ignored unknown dataset", map[string]interface{}{
			"dataset": datasetID,
		})
	}
	return newSelectionView(state)
}

// SelectMetric selects a column of the current dataset. Invalid ids are ignored.
func (s *choroplethService) SelectMetric(metricID string) SelectionView {
	state := s.controller.OnMetricChange(metricID)
	if state.MetricID != metricID {
		s.log.Debug("Ignored metric not in current dataset", map[string]interface{}{
			"dataset": state.DatasetID,
			"metric":  metricID,
		})
	}
	return newSelectionView(state)
}

// ToggleOverlay shows or hides the choropleth overlay.
func (s *choroplethService) ToggleOverlay() SelectionView {
	return newSelectionView(s.controller.OnToggleOverlay())
}

// ClearFeature deactivates the active feature.
func (s *choroplethService) ClearFeature() SelectionView {
	return newSelectionView(s.controller.OnBackgroundClick())
}

// SelectFeature activates geoid and returns the focus request for the view.
func (s *choroplethService) SelectFeature(geoid string) (SelectionView, engine.FocusRequest, error) {
	layer := s.store.Geometry()
	if layer == nil {
		return s.Selection(), engine.FocusRequest{}, ErrNotReady
	}
	if _, ok := layer.Feature(geoid); !ok {
		return s.Selection(), engine.FocusRequest{}, fmt.Errorf("%w: %s", ErrFeatureNotFound, geoid)
	}

	state, focus := s.controller.OnFeatureClick(geoid)
	s.log.Debug("Feature selected", map[string]interface{}{
		"geoid":      geoid,
		"has_bounds": focus.Bounds != nil,
	})
	return newSelectionView(state), focus, nil
}

// Legend returns the legend for the current selection; it is empty unless
// a dataset column is selected.
func (s *choroplethService) Legend() (engine.Legend, error) {
	registry := s.store.Registry()
	if registry == nil {
		return engine.Legend{}, ErrNotReady
	}
	return engine.LegendFor(registry, s.controller.State()), nil
}

// Styles resolves every feature against one consistent snapshot.
// While the overlay is hidden no styles are returned.
func (s *choroplethService) Styles() (StyleSet, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return StyleSet{}, ErrNotReady
	}

	state := s.controller.State()
	set := StyleSet{
		Visible:   state.OverlayVisible,
		Selection: newSelectionView(state),
		Styles:    map[string]models.StyleDescriptor{},
	}
	if !state.OverlayVisible {
		return set, nil
	}

	set.Styles = engine.ResolveStyles(snap.Geometry, snap.Metrics, snap.Registry, state)
	return set, nil
}

// Feature describes one feature: its geometry properties, census hierarchy,
// every recorded metric and its value and color under the current selection.
func (s *choroplethService) Feature(geoid string) (*FeatureDetail, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrNotReady
	}

	feature, inLayer := snap.Geometry.Feature(geoid)
	record, inIndex := snap.Metrics.Record(geoid)
	if !inLayer && !inIndex {
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, geoid)
	}

	state := s.controller.State()
	detail := &FeatureDetail{
		GeoID:      geoid,
		InGeometry: inLayer,
		Properties: feature.Properties,
		GeoInfo:    record.GeoInfo,
		Metrics:    record.Metrics,
		Active:     state.FeatureID == geoid,
		Style:      engine.ResolveStyle(geoid, snap.Metrics, snap.Registry, state),
	}
	if detail.Metrics == nil {
		detail.Metrics = map[string]map[string]float64{}
	}
	if inLayer && !feature.Bound.IsZero() {
		b := models.LatLngBoundsFrom(feature.Bound)
		detail.Bounds = &b
	}

	if state.Phase() == engine.PhaseDatasetAndMetric {
		if scale, ok := snap.Registry.Scale(state.DatasetID, state.MetricID); ok {
			current := &CurrentValue{Dataset: state.DatasetID, Metric: state.MetricID}
			value, present := record.Value(state.DatasetID, state.MetricID)
			if present {
				current.Value = &value
			}
			current.Color = engine.Classify(value, present, scale)
			detail.Current = current
		}
	}

	return detail, nil
}

// Classify colors value with the scale of the given dataset column.
func (s *choroplethService) Classify(datasetID, metricID string, value float64) (*Classification, error) {
	registry := s.store.Registry()
	if registry == nil {
		return nil, ErrNotReady
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}

	scale, ok := registry.Scale(datasetID, metricID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownScale, datasetID, metricID)
	}

	color := engine.ClassifyValue(value, scale)
	return &Classification{
		Dataset:  datasetID,
		Metric:   metricID,
		Value:    value,
		Color:    color,
		Overflow: color == models.OverflowColor,
	}, nil
}
