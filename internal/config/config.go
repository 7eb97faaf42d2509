// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/geometry"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Spatial  SpatialConfig  `yaml:"spatial" mapstructure:"spatial"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SpatialConfig configures the area polygon layer and the planar CRS
// used for distance computation.
type SpatialConfig struct {
	ShapefilePath string                 `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	AreaIDField   string                 `yaml:"area_id_field" mapstructure:"area_id_field"`
	Projection    geometry.LambertParams `yaml:"projection" mapstructure:"projection"`
}

// IngestConfig configures the file-to-raw-store enrichment path.
type IngestConfig struct {
	FilePrefix  string `yaml:"file_prefix" mapstructure:"file_prefix"`
	FileSuffix  string `yaml:"file_suffix" mapstructure:"file_suffix"`
	RawTable    string `yaml:"raw_table" mapstructure:"raw_table"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	ChunkSize   int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// PipelineConfig configures the incremental transform run.
type PipelineConfig struct {
	SourceTable     string `yaml:"source_table" mapstructure:"source_table"`
	CleanTable      string `yaml:"clean_table" mapstructure:"clean_table"`
	StatePath       string `yaml:"state_path" mapstructure:"state_path"`
	RollingDays     int    `yaml:"rolling_days" mapstructure:"rolling_days"`
	OverlapDays     int    `yaml:"overlap_days" mapstructure:"overlap_days"`
	ChunkSize       int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	RefreshDaysBack int    `yaml:"refresh_days_back" mapstructure:"refresh_days_back"`
	RegionPrefix    string `yaml:"region_prefix" mapstructure:"region_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRANSIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("spatial.area_id_field", "GEOID")
	proj := geometry.TexasSouthCentral()
	v.SetDefault("spatial.projection.semi_major_axis", proj.SemiMajorAxis)
	v.SetDefault("spatial.projection.inverse_flattening", proj.InverseFlattening)
	v.SetDefault("spatial.projection.std_parallel_1", proj.StdParallel1)
	v.SetDefault("spatial.projection.std_parallel_2", proj.StdParallel2)
	v.SetDefault("spatial.projection.origin_lat", proj.OriginLat)
	v.SetDefault("spatial.projection.origin_lon", proj.OriginLon)
	v.SetDefault("spatial.projection.false_easting", proj.FalseEasting)
	v.SetDefault("spatial.projection.false_northing", proj.FalseNorthing)
	v.SetDefault("ingest.file_prefix", "tapped_trip_view_legs_")
	v.SetDefault("ingest.file_suffix", ".csv")
	v.SetDefault("ingest.raw_table", "mobility.raw_leg_trips")
	v.SetDefault("ingest.concurrency", 3)
	v.SetDefault("ingest.chunk_size", 5000)
	v.SetDefault("pipeline.source_table", "mobility.raw_leg_trips")
	v.SetDefault("pipeline.clean_table", "mobility.leg_trips_clean")
	v.SetDefault("pipeline.state_path", "state/state_mobility_incremental.json")
	v.SetDefault("pipeline.rolling_days", 34)
	v.SetDefault("pipeline.overlap_days", 5)
	v.SetDefault("pipeline.chunk_size", 50000)
	v.SetDefault("pipeline.refresh_days_back", 31)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field configuration invariants.
func (c *Config) Validate() error {
	if c.Pipeline.OverlapDays >= c.Pipeline.RollingDays {
		return eris.Errorf("config: overlap_days (%d) must be less than rolling_days (%d)",
			c.Pipeline.OverlapDays, c.Pipeline.RollingDays)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
