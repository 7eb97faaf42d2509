package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/db"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

// stagingTable is the per-transaction staging area for the merge.
const stagingTable = "stg_leg_trips"

// cleanColumns is the canonical-store column set written by the merge,
// in staging order.
var cleanColumns = []string{
	"content_hash",
	"trip_id",
	"trip_date",
	"start_time_utc",
	"end_time_utc",
	"start_longitude",
	"start_latitude",
	"end_longitude",
	"end_latitude",
	"service_name",
	"route_short_name",
	"travel_mode",
	"start_stop_name",
	"end_stop_name",
	"source_file",
	"file_date_raw",
	"euclidean_distance_mi",
	"manhattan_distance_mi",
	"origin_area",
	"dest_area",
}

// Merge stages canonical legs into a temp table and inserts into the
// clean table every row whose content hash is not already present.
// Existing rows are never updated or deleted. Runs entirely on the
// caller's transaction; staging is chunked for throughput but a
// failing chunk aborts the whole merge. Returns the staged count, an
// upper bound on rows actually inserted.
func Merge(ctx context.Context, tx pgx.Tx, cleanTable string, legs []model.CanonicalLeg, chunkSize int) (int64, error) {
	if len(legs) == 0 {
		return 0, nil
	}
	if chunkSize <= 0 {
		chunkSize = 50000
	}

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stagingTable}.Sanitize(),
		db.SanitizeTable(cleanTable),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "merge: create staging table for %s", cleanTable)
	}

	var staged int64
	for start := 0; start < len(legs); start += chunkSize {
		end := min(start+chunkSize, len(legs))
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{stagingTable},
			cleanColumns,
			pgx.CopyFromRows(legRows(legs[start:end])),
		)
		if err != nil {
			return 0, eris.Wrap(err, "merge: COPY into staging table")
		}
		staged += n
	}

	colList := db.QuoteAndJoin(cleanColumns)
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT DISTINCT ON (content_hash) %s FROM %s ON CONFLICT (content_hash) DO NOTHING",
		db.SanitizeTable(cleanTable),
		colList,
		colList,
		pgx.Identifier{stagingTable}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return 0, eris.Wrapf(err, "merge: insert missing rows into %s", cleanTable)
	}

	return staged, nil
}

// legRows converts canonical legs into COPY row values matching
// cleanColumns.
func legRows(legs []model.CanonicalLeg) [][]any {
	rows := make([][]any, 0, len(legs))
	for i := range legs {
		c := &legs[i]
		rows = append(rows, []any{
			c.ContentHash[:],
			c.TripID,
			c.TripDate,
			c.StartTimeUTC,
			c.EndTimeUTC,
			c.StartLongitude,
			c.StartLatitude,
			c.EndLongitude,
			c.EndLatitude,
			c.ServiceName,
			c.RouteShortName,
			c.Mode,
			c.StartStopName,
			c.EndStopName,
			c.SourceFile,
			c.FileDateRaw,
			c.EuclideanDistanceMiles,
			c.ManhattanDistanceMiles,
			c.OriginArea,
			c.DestArea,
		})
	}
	return rows
}
