package models

import "sort"

// GeoInfo holds the descriptive census hierarchy of a block group.
type GeoInfo struct {
	BlockGroup  string `json:"blockGroup,omitempty"`
	CensusTract string `json:"censusTract,omitempty"`
	County      string `json:"county,omitempty"`
}

// MetricRecord holds every metric recorded for one geoid,
// keyed by dataset id and then by metric (column) id.
type MetricRecord struct {
	GeoID   string                        `json:"geoid"`
	GeoInfo GeoInfo                       `json:"geoinfo"`
	Metrics map[string]map[string]float64 `json:"metrics"`
}

// Value returns the metric value for a dataset column of this record.
func (m MetricRecord) Value(datasetID, metricID string) (float64, bool) {
	columns, ok := m.Metrics[datasetID]
	if !ok {
		return 0, false
	}
	v, ok := columns[metricID]
	return v, ok
}

// MetricIndex is a read-only lookup of metric records by geoid.
// It is built once per load and never mutated afterwards, so it is
// safe for concurrent readers. A nil *MetricIndex is empty.
type MetricIndex struct {
	records map[string]MetricRecord
}

// NewMetricIndex builds an index from records. Records sharing a geoid are
// merged; for the same dataset column the later record wins.
func NewMetricIndex(records []MetricRecord) *MetricIndex {
	idx := &MetricIndex{records: make(map[string]MetricRecord, len(records))}
	for _, rec := range records {
		existing, ok := idx.records[rec.GeoID]
		if !ok {
			existing = MetricRecord{GeoID: rec.GeoID, Metrics: map[string]map[string]float64{}}
		}
		if rec.GeoInfo != (GeoInfo{}) {
			existing.GeoInfo = rec.GeoInfo
		}
		for datasetID, columns := range rec.Metrics {
			dst, ok := existing.Metrics[datasetID]
			if !ok {
				dst = make(map[string]float64, len(columns))
				existing.Metrics[datasetID] = dst
			}
			for metricID, v := range columns {
				dst[metricID] = v
			}
		}
		idx.records[rec.GeoID] = existing
	}
	return idx
}

// Record returns the record for geoid.
func (idx *MetricIndex) Record(geoid string) (MetricRecord, bool) {
	if idx == nil {
		return MetricRecord{}, false
	}
	rec, ok := idx.records[geoid]
	return rec, ok
}

// Lookup resolves geoid → dataset → metric to a value.
// Each level falls back to "absent" (false):
//   - geoid not in the index
//   - dataset not recorded for the geoid
//   - metric column not recorded for the dataset
func (idx *MetricIndex) Lookup(geoid, datasetID, metricID string) (float64, bool) {
	rec, ok := idx.Record(geoid)
	if !ok {
		return 0, false
	}
	return rec.Value(datasetID, metricID)
}

// GeoIDs returns the indexed geoids in sorted order.
func (idx *MetricIndex) GeoIDs() []string {
	if idx == nil {
		return nil
	}
	ids := make([]string, 0, len(idx.records))
	for id := range idx.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of indexed geoids.
func (idx *MetricIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}
