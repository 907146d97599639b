package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"github.com/stwalsh4118/choropleth/internal/logger"
	"github.com/stwalsh4118/choropleth/internal/models"
)

// ErrGeometry is returned when the geometry document cannot be parsed.
var ErrGeometry = errors.New("invalid geometry")

// GeometrySource loads the block group features.
type GeometrySource interface {
	LoadGeometry(ctx context.Context) (*models.GeoLayer, error)
}

// GeometryLoader reads a GeoJSON FeatureCollection through a Fetcher.
type GeometryLoader struct {
	fetcher    Fetcher
	location   string
	geoidField string
	log        *logger.Logger
}

// NewGeometryLoader creates a GeometryLoader. An empty geoidField defaults to
// models.DefaultGeoIDField.
func NewGeometryLoader(fetcher Fetcher, location, geoidField string, log *logger.Logger) *GeometryLoader {
	if geoidField == "" {
		geoidField = models.DefaultGeoIDField
	}
	return &GeometryLoader{
		fetcher:    fetcher,
		location:   location,
		geoidField: geoidField,
		log:        log,
	}
}

// LoadGeometry fetches and parses the feature collection.
func (l *GeometryLoader) LoadGeometry(ctx context.Context) (*models.GeoLayer, error) {
	data, err := l.fetcher.Fetch(ctx, l.location)
	if err != nil {
		return nil, err
	}

	layer, skipped, err := ParseGeometry(data, l.geoidField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.location, err)
	}

	if skipped > 0 {
		l.log.Warn("Skipped features without a geoid", map[string]interface{}{
			"location":    l.location,
			"geoid_field": l.geoidField,
			"skipped":     skipped,
		})
	}
	l.log.Debug("Geometry parsed", map[string]interface{}{
		"location": l.location,
		"features": layer.Len(),
	})

	return layer, nil
}

// ParseGeometry builds a GeoLayer from a GeoJSON FeatureCollection.
// Features whose geoidField property is missing or empty are skipped and
// counted in skipped.
func ParseGeometry(data []byte, geoidField string) (layer *models.GeoLayer, skipped int, err error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrGeometry, err)
	}

	features := make([]models.GeoFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		geoid := models.StringProperty(f.Properties, geoidField)
		if geoid == "" {
			skipped++
			continue
		}

		feature := models.GeoFeature{
			GeoID:      geoid,
			Geometry:   f.Geometry,
			Properties: models.BlockGroupPropertiesFrom(f.Properties),
		}
		if f.Geometry != nil {
			feature.Bound = f.Geometry.Bound()
		}
		features = append(features, feature)
	}

	return models.NewGeoLayer(features), skipped, nil
}
