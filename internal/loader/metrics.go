package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stwalsh4118/choropleth/internal/logger"
	"github.com/stwalsh4118/choropleth/internal/models"
)

// ErrMetrics is returned when the metrics document cannot be parsed.
var ErrMetrics = errors.New("invalid metrics")

// MetricsSource loads the metric index.
type MetricsSource interface {
	LoadMetrics(ctx context.Context) (*models.MetricIndex, error)
}

// MetricsStats counts what ParseMetrics kept and dropped.
type MetricsStats struct {
	Records        int
	NestedRecords  int
	FlatRecords    int
	SkippedEntries int
	SkippedValues  int
}

// geoInfoPayload accepts both snake_case and camelCase keys.
type geoInfoPayload struct {
	BlockGroup       string `json:"block_group"`
	CensusTract      string `json:"census_tract"`
	County           string `json:"county"`
	BlockGroupCamel  string `json:"blockGroup"`
	CensusTractCamel string `json:"censusTract"`
}

func (p geoInfoPayload) toModel() models.GeoInfo {
	info := models.GeoInfo{
		BlockGroup:  p.BlockGroup,
		CensusTract: p.CensusTract,
		County:      p.County,
	}
	if info.BlockGroup == "" {
		info.BlockGroup = p.BlockGroupCamel
	}
	if info.CensusTract == "" {
		info.CensusTract = p.CensusTractCamel
	}
	return info
}

// ParseMetrics reads a metrics document keyed by geoid.
//
// Two entry shapes are accepted and detected per entry:
//
//	nested: {"<geoid>": {"geoinfo": {...}, "metrics": {"<dataset>": {"<metric>": 62}}}}
//	flat:   {"<geoid>": {"<metric>": 62}}
//
// Flat entries are filed under defaultDataset; without one they are skipped.
// Non-numeric leaves are skipped and counted.
func ParseMetrics(data []byte, defaultDataset string) ([]models.MetricRecord, MetricsStats, error) {
	var stats MetricsStats

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, stats, fmt.Errorf("%w: %w", ErrMetrics, err)
	}

	records := make([]models.MetricRecord, 0, len(raw))
	for geoid, body := range raw {
		var entry map[string]json.RawMessage
		if geoid == "" || json.Unmarshal(body, &entry) != nil {
			stats.SkippedEntries++
			continue
		}

		if nested, ok := entry["metrics"]; ok && isObject(nested) {
			rec, skipped, err := parseNested(geoid, entry, nested)
			if err != nil {
				stats.SkippedEntries++
				continue
			}
			stats.SkippedValues += skipped
			stats.NestedRecords++
			records = append(records, rec)
			continue
		}

		if defaultDataset == "" {
			stats.SkippedEntries++
			continue
		}
		columns, skipped := numericLeaves(entry)
		stats.SkippedValues += skipped
		stats.FlatRecords++
		records = append(records, models.MetricRecord{
			GeoID:   geoid,
			Metrics: map[string]map[string]float64{defaultDataset: columns},
		})
	}

	stats.Records = len(records)
	return records, stats, nil
}

func parseNested(geoid string, entry map[string]json.RawMessage, nested json.RawMessage) (models.MetricRecord, int, error) {
	rec := models.MetricRecord{GeoID: geoid, Metrics: map[string]map[string]float64{}}

	if info, ok := entry["geoinfo"]; ok {
		var payload geoInfoPayload
		if err := json.Unmarshal(info, &payload); err != nil {
			return rec, 0, err
		}
		rec.GeoInfo = payload.toModel()
	}

	var datasets map[string]json.RawMessage
	if err := json.Unmarshal(nested, &datasets); err != nil {
		return rec, 0, err
	}

	skipped := 0
	for datasetID, raw := range datasets {
		var leaves map[string]json.RawMessage
		if !isObject(raw) || json.Unmarshal(raw, &leaves) != nil {
			skipped++
			continue
		}
		columns, n := numericLeaves(leaves)
		skipped += n
		rec.Metrics[datasetID] = columns
	}
	return rec, skipped, nil
}

// numericLeaves keeps the values that decode as JSON numbers. null is skipped.
func numericLeaves(leaves map[string]json.RawMessage) (map[string]float64, int) {
	columns := make(map[string]float64, len(leaves))
	skipped := 0
	for key, raw := range leaves {
		var v float64
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || json.Unmarshal(raw, &v) != nil {
			skipped++
			continue
		}
		columns[key] = v
	}
	return columns, skipped
}

func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// FileMetricsSource loads metrics from a JSON document.
type FileMetricsSource struct {
	fetcher        Fetcher
	location       string
	defaultDataset string
	log            *logger.Logger
}

// NewFileMetricsSource creates a metrics source reading location.
// defaultDataset receives the values of flat-shaped entries.
func NewFileMetricsSource(fetcher Fetcher, location, defaultDataset string, log *logger.Logger) *FileMetricsSource {
	return &FileMetricsSource{
		fetcher:        fetcher,
		location:       location,
		defaultDataset: defaultDataset,
		log:            log,
	}
}

// LoadMetrics fetches, parses and indexes the metrics document.
func (s *FileMetricsSource) LoadMetrics(ctx context.Context) (*models.MetricIndex, error) {
	data, err := s.fetcher.Fetch(ctx, s.location)
	if err != nil {
		return nil, err
	}

	records, stats, err := ParseMetrics(data, s.defaultDataset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.location, err)
	}

	fields := map[string]interface{}{
		"location":        s.location,
		"records":         stats.Records,
		"nested":          stats.NestedRecords,
		"flat":            stats.FlatRecords,
		"skipped_entries": stats.SkippedEntries,
		"skipped_values":  stats.SkippedValues,
	}
	if stats.SkippedEntries > 0 || stats.SkippedValues > 0 {
		s.log.Warn("Metrics parsed with skipped entries", fields)
	} else {
		s.log.Debug("Metrics parsed", fields)
	}

	return models.NewMetricIndex(records), nil
}
