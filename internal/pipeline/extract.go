// Package pipeline orchestrates the incremental enrichment-and-dedup
// run: watermark-driven extraction, canonicalization, insert-only
// merge, and the downstream aggregate refresh.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/db"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

// extractColumns is the raw-store column set pulled by the extractor,
// in scan order.
var extractColumns = []string{
	"trip_id",
	"start_time",
	"end_time",
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
	"file_date",
	"euclidean_distance_mi",
	"manhattan_distance_mi",
	"origin_area",
	"dest_area",
}

// ComputeSince determines the extraction boundary. With no prior
// watermark the window is rollingDays back from today at midnight;
// otherwise the prior boundary minus overlapDays, so a run that only
// partially landed is safely reprocessed.
func ComputeSince(lastFileDate *time.Time, now time.Time, rollingDays, overlapDays int) time.Time {
	if lastFileDate == nil {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.AddDate(0, 0, -rollingDays)
	}
	return lastFileDate.AddDate(0, 0, -overlapDays)
}

// Extract pulls all raw rows at or after the boundary. It is read-only
// and never mutates the watermark; there is no upper bound, the
// extractor always looks forward to now.
func Extract(ctx context.Context, pool db.Pool, sourceTable string, since time.Time) ([]model.EnrichedLeg, error) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE file_date >= $1",
		db.QuoteAndJoin(extractColumns),
		db.SanitizeTable(sourceTable),
	)

	rows, err := pool.Query(ctx, sql, since)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: query %s", sourceTable)
	}
	defer rows.Close()

	var legs []model.EnrichedLeg
	for rows.Next() {
		var l model.EnrichedLeg
		if err := rows.Scan(
			&l.TripID,
			&l.StartTime, &l.EndTime,
			&l.StartLongitude, &l.StartLatitude, &l.EndLongitude, &l.EndLatitude,
			&l.ServiceName, &l.RouteShortName, &l.Mode,
			&l.StartStopName, &l.EndStopName,
			&l.SourceFile, &l.FileDate,
			&l.EuclideanDistanceMiles, &l.ManhattanDistanceMiles,
			&l.OriginArea, &l.DestArea,
		); err != nil {
			return nil, eris.Wrap(err, "extract: scan raw leg")
		}
		legs = append(legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "extract: iterate raw legs")
	}
	return legs, nil
}

// MaxFileDate returns the latest non-nil file date among the extracted
// rows, or ok=false when none carries one.
func MaxFileDate(legs []model.EnrichedLeg) (time.Time, bool) {
	var (
		max   time.Time
		found bool
	)
	for i := range legs {
		fd := legs[i].FileDate
		if fd == nil {
			continue
		}
		if !found || fd.After(max) {
			max = *fd
			found = true
		}
	}
	return max, found
}
