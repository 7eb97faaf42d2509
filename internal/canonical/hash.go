package canonical

import (
	"crypto/sha256"
	"strconv"
	"strings"
	"time"
)

// hashTimeLayout is the canonical encoding of a timestamp inside the
// hash input: naive UTC at millisecond precision.
const hashTimeLayout = "2006-01-02 15:04:05.000"

// Hash derives the content identity of a canonical leg: SHA-256 over
// the ordered business-field tuple, with nil values encoded as the
// empty string and fields joined by "|". The byte encoding of every
// field is fixed here (timestamps as naive UTC milliseconds, floats in
// Go 'g' shortest form), so the digest is reproducible bit-for-bit by
// any independent implementation. Distances and the trip date are
// derived fields and deliberately excluded.
func Hash(c *CanonicalFields) [32]byte {
	parts := []string{
		c.TripID,
		timeField(c.StartTimeUTC),
		timeField(c.EndTimeUTC),
		floatField(c.StartLongitude),
		floatField(c.StartLatitude),
		floatField(c.EndLongitude),
		floatField(c.EndLatitude),
		stringField(c.ServiceName),
		stringField(c.RouteShortName),
		stringField(c.Mode),
		stringField(c.StartStopName),
		stringField(c.EndStopName),
		c.SourceFile,
		c.FileDateRaw,
		stringField(c.OriginArea),
		stringField(c.DestArea),
	}
	return sha256.Sum256([]byte(strings.Join(parts, "|")))
}

// CanonicalFields is the hash input tuple: the business fields of a
// canonical leg in their normalized representation.
type CanonicalFields struct {
	TripID         string
	StartTimeUTC   *time.Time
	EndTimeUTC     *time.Time
	StartLongitude *float64
	StartLatitude  *float64
	EndLongitude   *float64
	EndLatitude    *float64
	ServiceName    *string
	RouteShortName *string
	Mode           *string
	StartStopName  *string
	EndStopName    *string
	SourceFile     string
	FileDateRaw    string
	OriginArea     *string
	DestArea       *string
}

func stringField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(hashTimeLayout)
}
