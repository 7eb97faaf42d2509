// Package model defines the trip-leg record types shared across the
// enrichment and dedup pipeline.
package model

import "time"

// EnrichedLeg is one observed trip segment after file-level enrichment:
// the raw fields plus provenance, planar distances, and area codes.
// Rows are written to the raw store verbatim and never mutated.
type EnrichedLeg struct {
	TripID string

	StartTime *time.Time
	EndTime   *time.Time

	StartLongitude *float64
	StartLatitude  *float64
	EndLongitude   *float64
	EndLatitude    *float64

	ServiceName    *string
	RouteShortName *string
	Mode           *string
	StartStopName  *string
	EndStopName    *string

	SourceFile string
	FileDate   *time.Time

	EuclideanDistanceMiles *float64
	ManhattanDistanceMiles *float64

	OriginArea *string
	DestArea   *string
}

// CanonicalLeg is the deduplicated unit of truth: enriched fields
// re-typed and normalized, keyed by a deterministic content hash.
type CanonicalLeg struct {
	ContentHash [32]byte

	TripID   string
	TripDate time.Time // calendar date, midnight UTC

	StartTimeUTC *time.Time // naive UTC, millisecond precision
	EndTimeUTC   *time.Time

	StartLongitude *float64
	StartLatitude  *float64
	EndLongitude   *float64
	EndLatitude    *float64

	ServiceName    *string
	RouteShortName *string
	Mode           *string
	StartStopName  *string
	EndStopName    *string

	SourceFile  string
	FileDateRaw string

	EuclideanDistanceMiles *float64
	ManhattanDistanceMiles *float64

	OriginArea *string
	DestArea   *string
}
