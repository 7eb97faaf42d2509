// Package ingest appends enriched leg files to the raw store. Files
// already present in the store are skipped, so re-running over the
// same download directory is safe.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/db"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/enrich"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

// rawColumns is the COPY column list for the raw store, matching the
// raw_leg_trips schema minus its serial key.
var rawColumns = []string{
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

// Loader enriches leg CSV files and appends them to the raw table.
type Loader struct {
	pool      db.Pool
	enricher  *enrich.Enricher
	table     string
	chunkSize int
	log       *zap.Logger
}

// NewLoader creates a Loader writing to the given raw table.
func NewLoader(pool db.Pool, enricher *enrich.Enricher, table string, chunkSize int) *Loader {
	return &Loader{
		pool:      pool,
		enricher:  enricher,
		table:     table,
		chunkSize: chunkSize,
		log:       zap.L().With(zap.String("component", "ingest")),
	}
}

// LoadedFiles returns the set of source file names already present in
// the raw table.
func (l *Loader) LoadedFiles(ctx context.Context) (map[string]struct{}, error) {
	query := "SELECT DISTINCT source_file FROM " + db.SanitizeTable(l.table)
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: query loaded files")
	}
	defer rows.Close()

	loaded := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "ingest: scan source file")
		}
		loaded[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: iterate loaded files")
	}
	return loaded, nil
}

// IngestFile enriches a single leg CSV and appends its rows to the
// raw table, returning the number of rows written.
func (l *Loader) IngestFile(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	raw, err := enrich.ReadLegs(f)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: parse %s", path)
	}

	fileName := filepath.Base(path)
	legs, err := l.enricher.EnrichFile(fileName, raw)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: enrich %s", fileName)
	}
	if len(legs) == 0 {
		l.log.Info("no usable rows in file", zap.String("file", fileName))
		return 0, nil
	}

	rows := make([][]any, len(legs))
	for i := range legs {
		rows[i] = rawRow(&legs[i])
	}

	n, err := db.CopyFromChunked(ctx, l.pool, l.table, rawColumns, rows, l.chunkSize)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: copy %s", fileName)
	}
	return n, nil
}

// Summary reports the outcome of an ingest pass over many files.
type Summary struct {
	Files   int
	Skipped int
	Failed  int
	Rows    int64
}

// IngestFiles ingests the given paths with bounded concurrency.
// Files whose base name is already present in the raw table are
// skipped. A file that fails to parse or enrich is logged and
// counted, not fatal; the rest of the pass continues.
func (l *Loader) IngestFiles(ctx context.Context, paths []string, concurrency int) (Summary, error) {
	loaded, err := l.LoadedFiles(ctx)
	if err != nil {
		return Summary{}, err
	}

	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu  sync.Mutex
		sum Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		fileName := filepath.Base(path)
		// source_file identity is the base name, so two paths with the
		// same base name in one pass would double-load.
		if _, ok := seen[fileName]; ok {
			l.log.Debug("duplicate file name in pass, skipping", zap.String("file", fileName))
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}
		path := path
		seen[fileName] = struct{}{}
		if _, ok := loaded[fileName]; ok {
			l.log.Debug("file already loaded, skipping", zap.String("file", fileName))
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			n, err := l.IngestFile(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A broken file must not sink the whole pass;
				// context cancellation must.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.log.Error("ingest file failed", zap.String("file", fileName), zap.Error(err))
				sum.Failed++
				return nil
			}
			sum.Files++
			sum.Rows += n
			l.log.Info("ingested file", zap.String("file", fileName), zap.Int64("rows", n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, eris.Wrap(err, "ingest: pass aborted")
	}
	return sum, nil
}

// IngestDir ingests every file in dir matching the enricher's naming
// convention.
func (l *Loader) IngestDir(ctx context.Context, dir string, concurrency int) (Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, eris.Wrapf(err, "ingest: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		l.log.Warn("no csv files found", zap.String("dir", dir))
		return Summary{}, nil
	}
	return l.IngestFiles(ctx, paths, concurrency)
}

func rawRow(leg *model.EnrichedLeg) []any {
	return []any{
		leg.TripID,
		leg.StartTime,
		leg.EndTime,
		leg.StartLongitude,
		leg.StartLatitude,
		leg.EndLongitude,
		leg.EndLatitude,
		leg.ServiceName,
		leg.RouteShortName,
		leg.Mode,
		leg.StartStopName,
		leg.EndStopName,
		leg.SourceFile,
		leg.FileDate,
		leg.EuclideanDistanceMiles,
		leg.ManhattanDistanceMiles,
		leg.OriginArea,
		leg.DestArea,
	}
}
