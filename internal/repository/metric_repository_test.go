package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (MetricRepository, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewMetricRepository(mock), mock
}

func TestLoadMetrics_Success(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM geo_info").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "block_group", "census_tract", "county"}).
			AddRow("150010201001", "Block Group 1", "Census Tract 201", "Hawaii County").
			AddRow("150010201002", "Block Group 2", "Census Tract 201", "Hawaii County"),
	)
	mock.ExpectQuery("FROM metric_values").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "dataset_id", "metric_id", "value"}).
			AddRow("150010201001", "computers", "No Computer", 62.0).
			AddRow("150010201001", "computers", "Has Computer", 300.0).
			AddRow("150010201001", "tenure", "Renter occupied", 12.0).
			AddRow("150010309002", "computers", "No Computer", 5.0),
	)

	index, err := repo.LoadMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, index.Len())

	v, ok := index.Lookup("150010201001", "computers", "No Computer")
	require.True(t, ok)
	assert.Equal(t, 62.0, v)

	v, ok = index.Lookup("150010201001", "tenure", "Renter occupied")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	rec, ok := index.Record("150010201002")
	require.True(t, ok)
	assert.Equal(t, "Census Tract 201", rec.GeoInfo.CensusTract)
	_, ok = index.Lookup("150010201002", "computers", "No Computer")
	assert.False(t, ok, "geoid with geo info but no values has no data")

	rec, ok = index.Record("150010309002")
	require.True(t, ok, "values without geo info are still indexed")
	assert.Empty(t, rec.GeoInfo.County)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMetrics_EmptyTables(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM geo_info").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "block_group", "census_tract", "county"}),
	)
	mock.ExpectQuery("FROM metric_values").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "dataset_id", "metric_id", "value"}),
	)

	index, err := repo.LoadMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, index.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMetrics_GeoInfoQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM geo_info").WillReturnError(errors.New("relation \"geo_info\" does not exist"))

	index, err := repo.LoadMetrics(context.Background())
	require.Error(t, err)
	assert.Nil(t, index)
	assert.Contains(t, err.Error(), "failed to query geo info")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMetrics_MetricValuesQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM geo_info").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "block_group", "census_tract", "county"}).
			AddRow("150010201001", "Block Group 1", "Census Tract 201", "Hawaii County"),
	)
	mock.ExpectQuery("FROM metric_values").WillReturnError(errors.New("connection reset"))

	_, err := repo.LoadMetrics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query metric values")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMetrics_RowError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM geo_info").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "block_group", "census_tract", "county"}),
	)
	mock.ExpectQuery("FROM metric_values").WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "dataset_id", "metric_id", "value"}).
			AddRow("150010201001", "computers", "No Computer", 62.0).
			AddRow("150010201002", "computers", "No Computer", 5.0).
			RowError(1, errors.New("network interrupted")),
	)

	// pgxmock reports a row error from Scan
	_, err := repo.LoadMetrics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan metric value row")
	assert.Contains(t, err.Error(), "network interrupted")
}

func TestLoadMetrics_IterationErrors(t *testing.T) {
	tests := []struct {
		name        string
		geoInfoErr  error
		metricsErr  error
		expectedErr string
	}{
		{
			name:        "geo info rows fail on close",
			geoInfoErr:  errors.New("connection lost"),
			expectedErr: "error iterating geo info rows: connection lost",
		},
		{
			name:        "metric value rows fail on close",
			metricsErr:  errors.New("connection lost"),
			expectedErr: "error iterating metric value rows: connection lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectQuery("FROM geo_info").WillReturnRows(
				pgxmock.NewRows([]string{"geoid", "block_group", "census_tract", "county"}).
					AddRow("150010201001", "Block Group 1", "Census Tract 201", "Hawaii County").
					CloseError(tt.geoInfoErr),
			)
			if tt.geoInfoErr == nil {
				mock.ExpectQuery("FROM metric_values").WillReturnRows(
					pgxmock.NewRows([]string{"geoid", "dataset_id", "metric_id", "value"}).
						AddRow("150010201001", "computers", "No Computer", 62.0).
						CloseError(tt.metricsErr),
				)
			}

			index, err := repo.LoadMetrics(context.Background())
			require.Error(t, err)
			assert.Nil(t, index)
			assert.EqualError(t, err, tt.expectedErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDatasetIDs_IterationError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT DISTINCT dataset_id").WillReturnRows(
		pgxmock.NewRows([]string{"dataset_id"}).AddRow("computers").CloseError(errors.New("connection lost")),
	)

	ids, err := repo.DatasetIDs(context.Background())
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.Contains(t, err.Error(), "error iterating dataset id rows")
}

func TestDatasetIDs(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT DISTINCT dataset_id").WillReturnRows(
		pgxmock.NewRows([]string{"dataset_id"}).AddRow("computers").AddRow("tenure"),
	)

	ids, err := repo.DatasetIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"computers", "tenure"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetIDs_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT DISTINCT dataset_id").WillReturnError(errors.New("timeout"))

	ids, err := repo.DatasetIDs(context.Background())
	require.Error(t, err)
	assert.Nil(t, ids)
}
