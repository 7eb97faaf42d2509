package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the PostgreSQL COPY
// protocol. This is the fastest way to insert large volumes of data.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := pool.CopyFrom(ctx, TableIdentifier(table), columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// CopyFromChunked bulk-inserts rows in bounded chunks. Chunking is a
// throughput mechanism only; the logical outcome is identical to one
// COPY of the whole slice, and the first failing chunk aborts the rest.
func CopyFromChunked(ctx context.Context, pool Pool, table string, columns []string, rows [][]any, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 50000
	}

	var total int64
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		n, err := CopyFrom(ctx, pool, table, columns, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// TableIdentifier builds a pgx.Identifier from a possibly
// schema-qualified table name like "mobility.raw_leg_trips".
func TableIdentifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{table}
}

// SanitizeTable quotes a possibly schema-qualified table name for use
// in hand-built SQL.
func SanitizeTable(table string) string {
	return TableIdentifier(table).Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
