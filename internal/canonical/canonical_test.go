package canonical

import (
	"encoding/hex"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

func strPtr(s string) *string        { return &s }
func f64Ptr(v float64) *float64      { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func sampleFields() CanonicalFields {
	start := time.Date(2025, 8, 1, 7, 30, 15, 250_000_000, time.UTC)
	end := start.Add(22 * time.Minute)
	return CanonicalFields{
		TripID:         "trip-0001",
		StartTimeUTC:   &start,
		EndTimeUTC:     &end,
		StartLongitude: f64Ptr(-98.4936),
		StartLatitude:  f64Ptr(29.4241),
		EndLongitude:   f64Ptr(-98.4861),
		EndLatitude:    f64Ptr(29.4260),
		ServiceName:    strPtr("VIA Metropolitan Transit"),
		RouteShortName: strPtr("100"),
		Mode:           strPtr("bus"),
		StartStopName:  strPtr("Commerce & St Mary's"),
		EndStopName:    strPtr("Houston & Navarro"),
		SourceFile:     "tapped_trip_view_legs_2025-08-01.csv",
		FileDateRaw:    "2025-08-01 00:00:00",
		OriginArea:     strPtr("480291101001"),
		DestArea:       strPtr("480291101002"),
	}
}

func TestHash_Deterministic(t *testing.T) {
	f := sampleFields()
	first := Hash(&f)
	second := Hash(&f)
	assert.Equal(t, first, second)
}

func TestHash_AnyFieldChangesDigest(t *testing.T) {
	base := Hash(func() *CanonicalFields { f := sampleFields(); return &f }())

	mutations := map[string]func(*CanonicalFields){
		"trip_id":     func(f *CanonicalFields) { f.TripID = "trip-0002" },
		"start_time":  func(f *CanonicalFields) { f.StartTimeUTC = timePtr(f.StartTimeUTC.Add(time.Millisecond)) },
		"end_time":    func(f *CanonicalFields) { f.EndTimeUTC = nil },
		"start_lon":   func(f *CanonicalFields) { f.StartLongitude = f64Ptr(-98.4937) },
		"service":     func(f *CanonicalFields) { f.ServiceName = nil },
		"route":       func(f *CanonicalFields) { f.RouteShortName = strPtr("101") },
		"mode":        func(f *CanonicalFields) { f.Mode = strPtr("rail") },
		"source_file": func(f *CanonicalFields) { f.SourceFile = "tapped_trip_view_legs_2025-08-02.csv" },
		"file_date":   func(f *CanonicalFields) { f.FileDateRaw = "2025-08-02 00:00:00" },
		"origin_area": func(f *CanonicalFields) { f.OriginArea = strPtr("480291101009") },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := sampleFields()
			mutate(&f)
			assert.NotEqual(t, base, Hash(&f))
		})
	}
}

func TestHash_StableReferenceDigest(t *testing.T) {
	// Pinned digest of an all-empty tuple: 15 delimiters between 16
	// empty fields. A change here means the portability contract broke.
	var empty CanonicalFields
	got := Hash(&empty)

	// sha256("|||||||||||||||")
	assert.Equal(t,
		"c33e73280b35cdc09791e97f55c9a08d7cd41d0be2a6360c3cf6ab6133aa070c",
		hex.EncodeToString(got[:]))
}

func TestSanitizeFloat(t *testing.T) {
	assert.Nil(t, SanitizeFloat(nil))
	assert.Nil(t, SanitizeFloat(f64Ptr(math.NaN())))
	assert.Nil(t, SanitizeFloat(f64Ptr(math.Inf(1))))
	assert.Nil(t, SanitizeFloat(f64Ptr(math.Inf(-1))))
	v := SanitizeFloat(f64Ptr(1.5))
	require.NotNil(t, v)
	assert.Equal(t, 1.5, *v)
}

func TestLeg_DropsRowsWithoutFileDate(t *testing.T) {
	_, ok := Leg(&model.EnrichedLeg{TripID: "t1"})
	assert.False(t, ok)
}

func TestLegs_OrderPreservingAndTyped(t *testing.T) {
	central := time.FixedZone("CDT", -5*3600)
	fd := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.EnrichedLeg{
		{
			TripID:     "t1",
			SourceFile: "legs_a.csv",
			FileDate:   &fd,
			StartTime:  timePtr(time.Date(2025, 8, 1, 7, 0, 0, 123_456_789, central)),
		},
		{TripID: "dropped"}, // no file date
		{
			TripID:         "t2",
			SourceFile:     "legs_a.csv",
			FileDate:       &fd,
			StartLongitude: f64Ptr(math.Inf(1)),
			EndLongitude:   f64Ptr(-98.5),
		},
	}

	out := Legs(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "t1", out[0].TripID)
	assert.Equal(t, "t2", out[1].TripID)

	// Trip date is the calendar date of the file date.
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), out[0].TripDate)
	assert.Equal(t, "2025-08-01 00:00:00", out[0].FileDateRaw)

	// Timestamps become naive UTC at millisecond precision.
	require.NotNil(t, out[0].StartTimeUTC)
	assert.Equal(t, time.Date(2025, 8, 1, 12, 0, 0, 123_000_000, time.UTC), *out[0].StartTimeUTC)

	// Non-finite numerics are nil, finite ones survive.
	assert.Nil(t, out[1].StartLongitude)
	require.NotNil(t, out[1].EndLongitude)
	assert.Equal(t, -98.5, *out[1].EndLongitude)

	// Each row carries a hash; different business fields differ.
	assert.NotEqual(t, out[0].ContentHash, out[1].ContentHash)
}

func TestLeg_SameFieldsSameHash(t *testing.T) {
	fd := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	a := model.EnrichedLeg{TripID: "t1", SourceFile: "legs_a.csv", FileDate: &fd}
	b := model.EnrichedLeg{TripID: "t1", SourceFile: "legs_a.csv", FileDate: &fd}

	ca, ok := Leg(&a)
	require.True(t, ok)
	cb, ok := Leg(&b)
	require.True(t, ok)
	assert.Equal(t, ca.ContentHash, cb.ContentHash)
}

func TestLeg_SourceFileDifferentiatesHash(t *testing.T) {
	// Same trip reprocessed from an overlapping later file keeps both
	// rows: source_file participates in the identity.
	fd := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	a := model.EnrichedLeg{TripID: "t1", SourceFile: "legs_a.csv", FileDate: &fd}
	b := model.EnrichedLeg{TripID: "t1", SourceFile: "legs_b.csv", FileDate: &fd}

	ca, _ := Leg(&a)
	cb, _ := Leg(&b)
	assert.NotEqual(t, ca.ContentHash, cb.ContentHash)
}
