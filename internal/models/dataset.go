package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Color is a CSS hex color such as "#E31A1C".
type Color string

// Reserved colors used by the classifier and the style resolver.
// Configured bucket colors must never collide with them.
const (
	NoDataColor       Color = "#FFFFFF"
	OverflowColor     Color = "#333333"
	UnloadedFillColor Color = "#CCCCCC"
)

var validate = validator.New()

// Scale validation errors
var (
	ErrEmptyScale        = errors.New("threshold scale is empty")
	ErrScaleLength       = errors.New("thresholds and colors differ in length")
	ErrScaleNotAscending = errors.New("thresholds are not strictly ascending")
	ErrNonFiniteBreak    = errors.New("threshold is not a finite number")
	ErrInvalidColor      = errors.New("invalid color")
	ErrReservedColor     = errors.New("color collides with a reserved color")
)

// Valid reports whether c is a CSS hex color (#RGB, #RGBA, #RRGGBB or #RRGGBBAA).
func (c Color) Valid() bool {
	return validate.Var(string(c), "required,hexcolor") == nil
}

// Normalize expands c to upper-case #RRGGBB, or #RRGGBBAA when it is not
// opaque. Invalid colors are returned unchanged.
func (c Color) Normalize() Color {
	if !c.Valid() {
		return c
	}
	hex := strings.ToUpper(string(c[1:]))
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 8 && hex[6:] == "FF" {
		hex = hex[:6]
	}
	return Color("#" + hex)
}

// IsReserved reports whether c denotes one of the reserved colors in any
// hex notation.
func (c Color) IsReserved() bool {
	n := c.Normalize()
	for _, r := range []Color{NoDataColor, OverflowColor, UnloadedFillColor} {
		if n == r {
			return true
		}
	}
	return false
}

// ThresholdScale pairs ascending break values with bucket colors.
// Bucket i covers values in (Thresholds[i-1], Thresholds[i]].
type ThresholdScale struct {
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	Thresholds []float64 `json:"thresholds" yaml:"thresholds"`
	Colors     []Color   `json:"colors" yaml:"colors"`
}

// Validate checks the scale invariants: non-empty, parallel lengths,
// strictly ascending thresholds and well-formed, non-reserved colors.
func (s ThresholdScale) Validate() error {
	if len(s.Thresholds) == 0 {
		return ErrEmptyScale
	}
	if len(s.Thresholds) != len(s.Colors) {
		return fmt.Errorf("%w: %d thresholds, %d colors", ErrScaleLength, len(s.Thresholds), len(s.Colors))
	}
	for i, t := range s.Thresholds {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w at index %d: %v", ErrNonFiniteBreak, i, t)
		}
	}
	for i := 1; i < len(s.Thresholds); i++ {
		if s.Thresholds[i] <= s.Thresholds[i-1] {
			return fmt.Errorf("%w: index %d (%v <= %v)", ErrScaleNotAscending, i, s.Thresholds[i], s.Thresholds[i-1])
		}
	}
	for i, c := range s.Colors {
		if !c.Valid() {
			return fmt.Errorf("%w at index %d: %q", ErrInvalidColor, i, c)
		}
		if c.IsReserved() {
			return fmt.Errorf("%w at index %d: %q", ErrReservedColor, i, c)
		}
	}
	return nil
}

// DatasetDefinition describes one dataset and the scale of each of its columns.
type DatasetDefinition struct {
	ID               string                    `json:"id" yaml:"id"`
	Label            string                    `json:"label" yaml:"label"`
	ColumnThresholds map[string]ThresholdScale `json:"columnThresholds" yaml:"columnThresholds"`
}

// Columns returns the metric ids of the dataset in sorted order.
func (d DatasetDefinition) Columns() []string {
	cols := make([]string, 0, len(d.ColumnThresholds))
	for id := range d.ColumnThresholds {
		cols = append(cols, id)
	}
	sort.Strings(cols)
	return cols
}

// HasColumn reports whether metricID is a column of the dataset.
func (d DatasetDefinition) HasColumn(metricID string) bool {
	_, ok := d.ColumnThresholds[metricID]
	return ok
}

// DatasetRegistry is the immutable catalog of dataset definitions.
// A nil *DatasetRegistry behaves as an empty registry.
type DatasetRegistry struct {
	datasets map[string]DatasetDefinition
}

// NewDatasetRegistry builds a registry from the given definitions, keyed by ID.
// The definitions are copied; later changes to the input do not leak in.
func NewDatasetRegistry(defs []DatasetDefinition) *DatasetRegistry {
	datasets := make(map[string]DatasetDefinition, len(defs))
	for _, d := range defs {
		cols := make(map[string]ThresholdScale, len(d.ColumnThresholds))
		for id, s := range d.ColumnThresholds {
			cols[id] = ThresholdScale{
				Label:      s.Label,
				Thresholds: append([]float64(nil), s.Thresholds...),
				Colors:     append([]Color(nil), s.Colors...),
			}
		}
		d.ColumnThresholds = cols
		datasets[d.ID] = d
	}
	return &DatasetRegistry{datasets: datasets}
}

// Dataset returns the definition for id.
func (r *DatasetRegistry) Dataset(id string) (DatasetDefinition, bool) {
	if r == nil {
		return DatasetDefinition{}, false
	}
	d, ok := r.datasets[id]
	return d, ok
}

// Scale returns the threshold scale for a dataset column.
func (r *DatasetRegistry) Scale(datasetID, metricID string) (ThresholdScale, bool) {
	d, ok := r.Dataset(datasetID)
	if !ok {
		return ThresholdScale{}, false
	}
	s, ok := d.ColumnThresholds[metricID]
	return s, ok
}

// HasMetric reports whether metricID is a column of datasetID.
func (r *DatasetRegistry) HasMetric(datasetID, metricID string) bool {
	_, ok := r.Scale(datasetID, metricID)
	return ok
}

// IDs returns all dataset ids in sorted order.
func (r *DatasetRegistry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.datasets))
	for id := range r.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of datasets.
func (r *DatasetRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.datasets)
}
