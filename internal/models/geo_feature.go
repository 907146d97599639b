package models

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultGeoIDField is the feature property carrying the 2020 census geoid.
const DefaultGeoIDField = "geoid20"

// BlockGroupProperties is the fixed property bag of a census block group.
// Missing properties are left at zero.
type BlockGroupProperties struct {
	ObjectID   int     `json:"objectId"`
	LandArea   float64 `json:"landArea"`
	WaterArea  float64 `json:"waterArea"`
	Population float64 `json:"population"`
	ShapeArea  float64 `json:"shapeArea"`
	Perimeter  float64 `json:"perimeter"`
}

// BlockGroupPropertiesFrom reads the census block group fields
// (objectid, aland20, awater20, pop20, st_areasha, st_perimet) from a
// GeoJSON property map.
func BlockGroupPropertiesFrom(props geojson.Properties) BlockGroupProperties {
	return BlockGroupProperties{
		ObjectID:   int(numberProperty(props, "objectid")),
		LandArea:   numberProperty(props, "aland20"),
		WaterArea:  numberProperty(props, "awater20"),
		Population: numberProperty(props, "pop20"),
		ShapeArea:  numberProperty(props, "st_areasha"),
		Perimeter:  numberProperty(props, "st_perimet"),
	}
}

// numberProperty reads a numeric property, accepting numeric strings.
// orb's Must* helpers panic on unexpected types, so they are not used here.
func numberProperty(props geojson.Properties, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// StringProperty reads a property as a string. Numeric geoids are formatted
// without exponent or trailing zeros.
func StringProperty(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// GeoFeature is one geographic area. Geometry is opaque to the engine;
// only its bounds are used, to ask the view to fit an active feature.
type GeoFeature struct {
	GeoID      string
	Geometry   orb.Geometry
	Bound      orb.Bound
	Properties BlockGroupProperties
}

// GeoLayer is the immutable, ordered set of loaded features.
// A nil *GeoLayer is empty.
type GeoLayer struct {
	features []GeoFeature
	byID     map[string]int
}

// NewGeoLayer indexes features by geoid. A repeated geoid keeps its first position
// and takes the last feature's data.
func NewGeoLayer(features []GeoFeature) *GeoLayer {
	layer := &GeoLayer{
		features: make([]GeoFeature, 0, len(features)),
		byID:     make(map[string]int, len(features)),
	}
	for _, f := range features {
		if i, ok := layer.byID[f.GeoID]; ok {
			layer.features[i] = f
			continue
		}
		layer.byID[f.GeoID] = len(layer.features)
		layer.features = append(layer.features, f)
	}
	return layer
}

// Feature returns the feature with the given geoid.
func (l *GeoLayer) Feature(geoid string) (GeoFeature, bool) {
	if l == nil {
		return GeoFeature{}, false
	}
	i, ok := l.byID[geoid]
	if !ok {
		return GeoFeature{}, false
	}
	return l.features[i], true
}

// Features returns the features in load order. Callers must not modify the slice.
func (l *GeoLayer) Features() []GeoFeature {
	if l == nil {
		return nil
	}
	return l.features
}

// Len returns the number of features.
func (l *GeoLayer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.features)
}

// Bound returns the bounding box of all features.
func (l *GeoLayer) Bound() orb.Bound {
	if l.Len() == 0 {
		return orb.Bound{}
	}
	b := l.features[0].Bound
	for _, f := range l.features[1:] {
		b = b.Union(f.Bound)
	}
	return b
}

// LatLngBounds is a bounding box in Leaflet order: [[south, west], [north, east]].
type LatLngBounds [2][2]float64

// LatLngBoundsFrom converts an orb bound (lon/lat points) to LatLngBounds.
func LatLngBoundsFrom(b orb.Bound) LatLngBounds {
	return LatLngBounds{
		{b.Min.Lat(), b.Min.Lon()},
		{b.Max.Lat(), b.Max.Lon()},
	}
}
