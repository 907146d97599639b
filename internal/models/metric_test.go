package models

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricIndex_Lookup(t *testing.T) {
	idx := NewMetricIndex([]MetricRecord{
		{
			GeoID:   "150010309002",
			GeoInfo: GeoInfo{BlockGroup: "Block Group 2", CensusTract: "Census Tract 309", County: "Hawaii County"},
			Metrics: map[string]map[string]float64{"computers": {"No Computer": 62}},
		},
	})

	tests := []struct {
		name      string
		geoid     string
		dataset   string
		metric    string
		wantValue float64
		wantOK    bool
	}{
		{name: "present", geoid: "150010309002", dataset: "computers", metric: "No Computer", wantValue: 62, wantOK: true},
		{name: "unknown geoid", geoid: "150010309001", dataset: "computers", metric: "No Computer"},
		{name: "unknown dataset", geoid: "150010309002", dataset: "tenure", metric: "No Computer"},
		{name: "unknown metric", geoid: "150010309002", dataset: "computers", metric: "Has Computer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := idx.Lookup(tt.geoid, tt.dataset, tt.metric)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, v)
		})
	}
}

func TestMetricIndex_MergesRecords(t *testing.T) {
	idx := NewMetricIndex([]MetricRecord{
		{
			GeoID:   "g1",
			GeoInfo: GeoInfo{County: "Hawaii County"},
			Metrics: map[string]map[string]float64{"computers": {"No Computer": 1}},
		},
		{
			GeoID:   "g1",
			Metrics: map[string]map[string]float64{"computers": {"No Computer": 2, "Has Computer": 5}, "tenure": {"Renter occupied": 7}},
		},
		{GeoID: "g2"},
	})

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"g1", "g2"}, idx.GeoIDs())

	rec, ok := idx.Record("g1")
	require.True(t, ok)
	assert.Equal(t, "Hawaii County", rec.GeoInfo.County)

	v, ok := idx.Lookup("g1", "computers", "No Computer")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = idx.Lookup("g1", "tenure", "Renter occupied")
	assert.True(t, ok)

	_, ok = idx.Lookup("g2", "computers", "No Computer")
	assert.False(t, ok)
}

func TestMetricIndex_Nil(t *testing.T) {
	var idx *MetricIndex
	_, ok := idx.Lookup("g1", "computers", "No Computer")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
}

func TestGeoLayer(t *testing.T) {
	a := orb.Bound{Min: orb.Point{-156, 19}, Max: orb.Point{-155, 20}}
	b := orb.Bound{Min: orb.Point{-158, 21}, Max: orb.Point{-157, 22}}
	layer := NewGeoLayer([]GeoFeature{
		{GeoID: "g1", Bound: a},
		{GeoID: "g2", Bound: b},
		{GeoID: "g1", Bound: a, Properties: BlockGroupProperties{ObjectID: 9}},
	})

	assert.Equal(t, 2, layer.Len())
	f, ok := layer.Feature("g1")
	require.True(t, ok)
	assert.Equal(t, 9, f.Properties.ObjectID)
	assert.Equal(t, "g1", layer.Features()[0].GeoID)

	all := layer.Bound()
	assert.Equal(t, orb.Point{-158, 19}, all.Min)
	assert.Equal(t, orb.Point{-155, 22}, all.Max)

	var empty *GeoLayer
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.Bound().IsZero())
}

func TestBlockGroupPropertiesFrom(t *testing.T) {
	props := geojson.Properties{
		"objectid":   float64(17),
		"geoid20":    "150010309002",
		"aland20":    1234.5,
		"awater20":   "10",
		"pop20":      float64(980),
		"st_areasha": 2.5,
		"st_perimet": nil,
	}

	got := BlockGroupPropertiesFrom(props)

	assert.Equal(t, BlockGroupProperties{
		ObjectID:   17,
		LandArea:   1234.5,
		WaterArea:  10,
		Population: 980,
		ShapeArea:  2.5,
	}, got)
}

func TestStringProperty(t *testing.T) {
	props := geojson.Properties{
		"text":    "150010309002",
		"numeric": float64(150010309002),
		"int":     7,
		"bool":    true,
	}

	assert.Equal(t, "150010309002", StringProperty(props, "text"))
	assert.Equal(t, "150010309002", StringProperty(props, "numeric"))
	assert.Equal(t, "7", StringProperty(props, "int"))
	assert.Equal(t, "", StringProperty(props, "bool"))
	assert.Equal(t, "", StringProperty(props, "missing"))
}

func TestLatLngBoundsFrom(t *testing.T) {
	b := LatLngBoundsFrom(orb.Bound{Min: orb.Point{-161, 18}, Max: orb.Point{-154, 23}})
	assert.Equal(t, LatLngBounds{{18, -161}, {23, -154}}, b)
}
