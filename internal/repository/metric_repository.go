package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/choropleth/internal/models"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// MetricRepository defines the interface for metric data access operations.
type MetricRepository interface {
	// LoadMetrics reads every geo_info row and every metric value and
	// returns them as an index. Geoids without values are indexed with
	// empty metrics (no data, not an error).
	LoadMetrics(ctx context.Context) (*models.MetricIndex, error)

	// DatasetIDs lists the datasets that have at least one stored value.
	DatasetIDs(ctx context.Context) ([]string, error)
}

// metricRepository is the concrete implementation of MetricRepository.
type metricRepository struct {
	db Querier
}

// NewMetricRepository creates a new instance of MetricRepository.
func NewMetricRepository(db Querier) MetricRepository {
	return &metricRepository{
		db: db,
	}
}

const geoInfoQuery = `
	SELECT
		geoid,
		block_group,
		census_tract,
		county
	FROM geo_info
	ORDER BY geoid
`

const metricValuesQuery = `
	SELECT
		geoid,
		dataset_id,
		metric_id,
		value
	FROM metric_values
	WHERE value IS NOT NULL
	ORDER BY geoid, dataset_id, metric_id
`

const datasetIDsQuery = `
	SELECT DISTINCT dataset_id
	FROM metric_values
	ORDER BY dataset_id
`

// LoadMetrics builds the metric index from the geo_info and metric_values tables.
func (r *metricRepository) LoadMetrics(ctx context.Context) (*models.MetricIndex, error) {
	records := make(map[string]*models.MetricRecord)
	order := make([]string, 0)

	recordFor := func(geoid string) *models.MetricRecord {
		rec, ok := records[geoid]
		if !ok {
			rec = &models.MetricRecord{GeoID: geoid, Metrics: map[string]map[string]float64{}}
			records[geoid] = rec
			order = append(order, geoid)
		}
		return rec
	}

	rows, err := r.db.Query(ctx, geoInfoQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query geo info: %w", err)
	}
	for rows.Next() {
		var geoid string
		var info models.GeoInfo
		if err := rows.Scan(&geoid, &info.BlockGroup, &info.CensusTract, &info.County); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan geo info row: %w", err)
		}
		recordFor(geoid).GeoInfo = info
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating geo info rows: %w", err)
	}

	rows, err = r.db.Query(ctx, metricValuesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var geoid, datasetID, metricID string
		var value float64
		if err := rows.Scan(&geoid, &datasetID, &metricID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric value row: %w", err)
		}

		rec := recordFor(geoid)
		columns, ok := rec.Metrics[datasetID]
		if !ok {
			columns = make(map[string]float64)
			rec.Metrics[datasetID] = columns
		}
		columns[metricID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric value rows: %w", err)
	}

	list := make([]models.MetricRecord, 0, len(order))
	for _, geoid := range order {
		list = append(list, *records[geoid])
	}
	return models.NewMetricIndex(list), nil
}

// DatasetIDs returns the distinct dataset ids present in metric_values.
func (r *metricRepository) DatasetIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, datasetIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dataset id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dataset id rows: %w", err)
	}
	return ids, nil
}
