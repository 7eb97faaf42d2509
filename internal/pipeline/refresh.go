package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Refresh invokes the downstream rollup recomputation over a trailing
// window of daysBack days, optionally scoped to a region prefix. It is
// called exactly once per successful run, on the same transaction as
// the merge; any failure is fatal for the run and the watermark is not
// advanced.
func Refresh(ctx context.Context, tx pgx.Tx, daysBack int, regionPrefix *string) error {
	_, err := tx.Exec(ctx,
		"SELECT mobility.refresh_rolling_aggregates($1, $2)",
		daysBack, regionPrefix,
	)
	if err != nil {
		return eris.Wrap(err, "refresh: rolling aggregates")
	}
	return nil
}
