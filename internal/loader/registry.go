package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/stwalsh4118/choropleth/internal/logger"
	"github.com/stwalsh4118/choropleth/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrRegistry is returned when the registry document cannot be parsed.
var ErrRegistry = errors.New("invalid dataset registry")

// Format is the encoding of a registry document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor guesses the document format from a location's extension.
func FormatFor(location string) Format {
	location, _, _ = strings.Cut(location, "?")
	switch strings.ToLower(path.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ScaleIssue records a column dropped from the registry at load time.
type ScaleIssue struct {
	DatasetID string `json:"datasetId"`
	MetricID  string `json:"metricId"`
	Reason    string `json:"reason"`
}

// RegistrySource loads the dataset registry.
type RegistrySource interface {
	LoadRegistry(ctx context.Context) (*models.DatasetRegistry, []ScaleIssue, error)
}

type datasetPayload struct {
	Label            string                           `json:"label" yaml:"label"`
	ColumnThresholds map[string]models.ThresholdScale `json:"columnThresholds" yaml:"columnThresholds"`
}

// ParseRegistry decodes a registry document keyed by dataset id and validates
// every column scale. Invalid columns are dropped and reported as issues;
// the rest of the registry stays usable.
func ParseRegistry(data []byte, format Format) (*models.DatasetRegistry, []ScaleIssue, error) {
	var raw map[string]datasetPayload

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRegistry, err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var issues []ScaleIssue
	defs := make([]models.DatasetDefinition, 0, len(raw))
	for _, id := range ids {
		payload := raw[id]
		def := models.DatasetDefinition{
			ID:               id,
			Label:            payload.Label,
			ColumnThresholds: make(map[string]models.ThresholdScale, len(payload.ColumnThresholds)),
		}
		if def.Label == "" {
			def.Label = id
		}

		for metricID, scale := range payload.ColumnThresholds {
			if err := scale.Validate(); err != nil {
				issues = append(issues, ScaleIssue{DatasetID: id, MetricID: metricID, Reason: err.Error()})
				continue
			}
			def.ColumnThresholds[metricID] = scale
		}
		defs = append(defs, def)
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].DatasetID != issues[j].DatasetID {
			return issues[i].DatasetID < issues[j].DatasetID
		}
		return issues[i].MetricID < issues[j].MetricID
	})

	return models.NewDatasetRegistry(defs), issues, nil
}

// FileRegistrySource loads the registry from a JSON or YAML document.
type FileRegistrySource struct {
	fetcher  Fetcher
	location string
	log      *logger.Logger
}

// NewFileRegistrySource creates a registry source reading location.
func NewFileRegistrySource(fetcher Fetcher, location string, log *logger.Logger) *FileRegistrySource {
	return &FileRegistrySource{
		fetcher:  fetcher,
		location: location,
		log:      log,
	}
}

// LoadRegistry fetches and validates the registry.
func (s *FileRegistrySource) LoadRegistry(ctx context.Context) (*models.DatasetRegistry, []ScaleIssue, error) {
	data, err := s.fetcher.Fetch(ctx, s.location)
	if err != nil {
		return nil, nil, err
	}

	registry, issues, err := ParseRegistry(data, FormatFor(s.location))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.location, err)
	}

	for _, issue := range issues {
		s.log.Warn("Dropped invalid threshold scale", map[string]interface{}{
			"dataset": issue.DatasetID,
			"metric":  issue.MetricID,
			"reason":  issue.Reason,
		})
	}

	return registry, issues, nil
}
