package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrationFiles = []string{
	"0001_raw_leg_trips.sql",
	"0002_leg_trips_clean.sql",
	"0003_pipeline_runs.sql",
	"0004_rolling_aggregates.sql",
}

func TestMigrate_AllApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS mobility`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	rows := pgxmock.NewRows([]string{"filename"})
	for _, f := range migrationFiles {
		rows.AddRow(f)
	}
	mock.ExpectQuery(`SELECT filename FROM mobility\.schema_migrations`).WillReturnRows(rows)
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SELECT pg_advisory_lock`).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS mobility`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	// Everything but the last migration is already applied.
	rows := pgxmock.NewRows([]string{"filename"})
	for _, f := range migrationFiles[:len(migrationFiles)-1] {
		rows.AddRow(f)
	}
	mock.ExpectQuery(`SELECT filename FROM mobility\.schema_migrations`).WillReturnRows(rows)

	mock.ExpectExec(`refresh_rolling_aggregates`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO mobility\.schema_migrations`).
		WithArgs("0004_rolling_aggregates.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshProcedureDeleteIsRegionScoped(t *testing.T) {
	sql, err := migrationFS.ReadFile("migrations/0004_rolling_aggregates.sql")
	require.NoError(t, err)

	// The DELETE must carry the same region predicate as the
	// re-INSERT; otherwise a prefix-scoped refresh removes every
	// other region's rows in the window without restoring them.
	var deleteStmt string
	for _, stmt := range strings.Split(string(sql), ";") {
		if strings.Contains(stmt, "DELETE FROM mobility.rolling_aggregates") {
			deleteStmt = stmt
			break
		}
	}
	require.NotEmpty(t, deleteStmt)
	assert.Contains(t, deleteStmt, "region_prefix IS NULL OR origin_area LIKE region_prefix || '%'")
}

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, migrationFiles, names)
}
