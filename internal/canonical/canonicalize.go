package canonical

import (
	"time"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

// fileDateRawLayout is the canonical string form of the raw file date
// carried into the clean table and the hash input.
const fileDateRawLayout = "2006-01-02 15:04:05"

// Legs maps extracted raw legs to canonical legs: types normalized,
// non-finite numerics coerced to nil, content hash computed per row.
// Rows whose file date is absent have no parseable trip date and are
// dropped; everything else passes through in input order. The
// transformation is pure and side-effect free.
func Legs(rows []model.EnrichedLeg) []model.CanonicalLeg {
	out := make([]model.CanonicalLeg, 0, len(rows))
	for i := range rows {
		c, ok := Leg(&rows[i])
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Leg canonicalizes a single extracted row. ok is false when the row
// has no trip date and therefore no canonical representation.
func Leg(r *model.EnrichedLeg) (model.CanonicalLeg, bool) {
	if r.FileDate == nil {
		return model.CanonicalLeg{}, false
	}

	fd := r.FileDate.UTC()
	c := model.CanonicalLeg{
		TripID:   r.TripID,
		TripDate: time.Date(fd.Year(), fd.Month(), fd.Day(), 0, 0, 0, 0, time.UTC),

		StartTimeUTC: naiveUTC(r.StartTime),
		EndTimeUTC:   naiveUTC(r.EndTime),

		StartLongitude: SanitizeFloat(r.StartLongitude),
		StartLatitude:  SanitizeFloat(r.StartLatitude),
		EndLongitude:   SanitizeFloat(r.EndLongitude),
		EndLatitude:    SanitizeFloat(r.EndLatitude),

		ServiceName:    r.ServiceName,
		RouteShortName: r.RouteShortName,
		Mode:           r.Mode,
		StartStopName:  r.StartStopName,
		EndStopName:    r.EndStopName,

		SourceFile:  r.SourceFile,
		FileDateRaw: fd.Format(fileDateRawLayout),

		EuclideanDistanceMiles: SanitizeFloat(r.EuclideanDistanceMiles),
		ManhattanDistanceMiles: SanitizeFloat(r.ManhattanDistanceMiles),

		OriginArea: r.OriginArea,
		DestArea:   r.DestArea,
	}

	c.ContentHash = Hash(&CanonicalFields{
		TripID:         c.TripID,
		StartTimeUTC:   c.StartTimeUTC,
		EndTimeUTC:     c.EndTimeUTC,
		StartLongitude: c.StartLongitude,
		StartLatitude:  c.StartLatitude,
		EndLongitude:   c.EndLongitude,
		EndLatitude:    c.EndLatitude,
		ServiceName:    c.ServiceName,
		RouteShortName: c.RouteShortName,
		Mode:           c.Mode,
		StartStopName:  c.StartStopName,
		EndStopName:    c.EndStopName,
		SourceFile:     c.SourceFile,
		FileDateRaw:    c.FileDateRaw,
		OriginArea:     c.OriginArea,
		DestArea:       c.DestArea,
	})

	return c, true
}

// naiveUTC converts a timestamp to naive UTC truncated to millisecond
// precision, matching the clean table's timestamp(3) columns.
func naiveUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC().Truncate(time.Millisecond)
	return &u
}
