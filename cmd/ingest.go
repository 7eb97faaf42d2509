package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/areas"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/enrich"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/geometry"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/ingest"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Enrich leg files into the raw store",
	Long: `Enrich downloaded trip-leg CSV files and append them to the raw table.

Each file is joined to the area polygon layer, planar distances are
computed, and provenance is attached. Files already present in the raw
table are skipped, so pointing --dir at the same download directory on
every run is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" && len(args) == 0 {
			return eris.New("ingest: pass file paths or --dir")
		}

		log := zap.L().With(zap.String("command", "ingest"))

		if cfg.Spatial.ShapefilePath == "" {
			return eris.New("ingest: no shapefile_path configured (set spatial.shapefile_path)")
		}
		layer, err := areas.LoadShapefile(cfg.Spatial.ShapefilePath, cfg.Spatial.AreaIDField)
		if err != nil {
			return eris.Wrap(err, "ingest: load area layer")
		}
		log.Info("area layer loaded", zap.Int("areas", layer.Len()))

		proj, err := geometry.NewLambert(cfg.Spatial.Projection)
		if err != nil {
			return eris.Wrap(err, "ingest: build projection")
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pipeline.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "ingest: migrate")
		}

		enricher := enrich.NewEnricher(
			geometry.NewEngine(proj),
			layer,
			cfg.Ingest.FilePrefix,
			cfg.Ingest.FileSuffix,
		)
		loader := ingest.NewLoader(pool, enricher, cfg.Ingest.RawTable, cfg.Ingest.ChunkSize)

		var sum ingest.Summary
		if dir != "" {
			sum, err = loader.IngestDir(ctx, dir, cfg.Ingest.Concurrency)
		} else {
			sum, err = loader.IngestFiles(ctx, args, cfg.Ingest.Concurrency)
		}
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		fmt.Printf("Ingest complete: %d files, %d rows, %d skipped, %d failed\n",
			sum.Files, sum.Rows, sum.Skipped, sum.Failed)
		if sum.Failed > 0 {
			return eris.Errorf("ingest: %d file(s) failed", sum.Failed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("dir", "", "ingest every .csv file in this directory")
	rootCmd.AddCommand(ingestCmd)
}
