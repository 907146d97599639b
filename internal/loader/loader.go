package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/choropleth/internal/models"
	"golang.org/x/sync/errgroup"
)

// Loader runs the geometry, metrics and registry loads concurrently.
type Loader struct {
	geometry GeometrySource
	metrics  MetricsSource
	registry RegistrySource
	now      func() time.Time
}

// New creates a Loader over the three sources.
func New(geometry GeometrySource, metrics MetricsSource, registry RegistrySource) *Loader {
	return &Loader{
		geometry: geometry,
		metrics:  metrics,
		registry: registry,
		now:      time.Now,
	}
}

// Load fetches all three inputs. The first failure cancels the others and
// is returned; no partial snapshot is produced.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	var (
		layer    *models.GeoLayer
		index    *models.MetricIndex
		registry *models.DatasetRegistry
		issues   []ScaleIssue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if layer, err = l.geometry.LoadGeometry(gctx); err != nil {
			return fmt.Errorf("load geometry: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if index, err = l.metrics.LoadMetrics(gctx); err != nil {
			return fmt.Errorf("load metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if registry, issues, err = l.registry.LoadRegistry(gctx); err != nil {
			return fmt.Errorf("load dataset registry: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Geometry: layer,
		Metrics:  index,
		Registry: registry,
		Issues:   issues,
		LoadedAt: l.now(),
	}, nil
}
