package enrich

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/areas"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/geometry"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

// timestampLayouts are accepted source timestamp formats, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

// Enricher attaches provenance, distances, and area codes to raw leg
// records from one file. The polygon layer is loaded once per run and
// treated as read-only.
type Enricher struct {
	engine     *geometry.Engine
	layer      *areas.Layer
	filePrefix string
	fileSuffix string
}

// NewEnricher creates an enricher over the given geometry engine and
// area layer. prefix and suffix bracket the date in source file names,
// e.g. "tapped_trip_view_legs_" and ".csv".
func NewEnricher(engine *geometry.Engine, layer *areas.Layer, prefix, suffix string) *Enricher {
	return &Enricher{engine: engine, layer: layer, filePrefix: prefix, fileSuffix: suffix}
}

// ParseFileDate infers the capture date from a file name by stripping
// the known prefix and suffix and parsing the remainder as a calendar
// date. Returns nil when the remainder is not a date.
func (e *Enricher) ParseFileDate(fileName string) *time.Time {
	s := strings.TrimSuffix(strings.TrimPrefix(fileName, e.filePrefix), e.fileSuffix)
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil
	}
	return &d
}

// EnrichFile enriches one file's records. Rows missing any of the four
// coordinates are dropped; survivors keep their original order. An
// empty result is not an error. The whole file either enriches or the
// error aborts it (the caller decides skip versus abort).
func (e *Enricher) EnrichFile(fileName string, rows []RawLeg) ([]model.EnrichedLeg, error) {
	fileDate := e.ParseFileDate(fileName)
	if fileDate == nil {
		zap.L().Warn("enrich: file name has no parseable date",
			zap.String("file", fileName))
	}

	out := make([]model.EnrichedLeg, 0, len(rows))
	dropped := 0
	for i := range rows {
		r := &rows[i]

		startLon := parseCoord(r.StartLongitude)
		startLat := parseCoord(r.StartLatitude)
		endLon := parseCoord(r.EndLongitude)
		endLat := parseCoord(r.EndLatitude)
		if startLon == nil || startLat == nil || endLon == nil || endLat == nil {
			dropped++
			continue
		}

		d := e.engine.Distances(*startLon, *startLat, *endLon, *endLat)

		leg := model.EnrichedLeg{
			TripID:         r.TripID,
			StartTime:      parseTimestamp(r.StartTime),
			EndTime:        parseTimestamp(r.EndTime),
			StartLongitude: startLon,
			StartLatitude:  startLat,
			EndLongitude:   endLon,
			EndLatitude:    endLat,
			ServiceName:    nullableString(r.ServiceName),
			RouteShortName: nullableString(r.RouteShortName),
			Mode:           nullableString(r.Mode),
			StartStopName:  nullableString(r.StartStopName),
			EndStopName:    nullableString(r.EndStopName),
			SourceFile:     fileName,
			FileDate:       fileDate,

			EuclideanDistanceMiles: &d.EuclideanMiles,
			ManhattanDistanceMiles: &d.ManhattanMiles,
		}

		if code, ok := e.layer.Locate(*startLon, *startLat); ok {
			leg.OriginArea = &code
		}
		if code, ok := e.layer.Locate(*endLon, *endLat); ok {
			leg.DestArea = &code
		}

		out = append(out, leg)
	}

	if dropped > 0 {
		zap.L().Debug("enrich: dropped rows with missing coordinates",
			zap.String("file", fileName),
			zap.Int("dropped", dropped),
		)
	}
	return out, nil
}

// parseCoord parses a coordinate field; values that are not finite
// numbers coerce to nil.
func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseTimestamp parses a source timestamp; unparseable values degrade
// to nil rather than failing the row.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
