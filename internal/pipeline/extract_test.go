package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/model"
)

func TestComputeSince_NoWatermark(t *testing.T) {
	now := time.Date(2025, 9, 1, 14, 30, 45, 0, time.UTC)

	since := ComputeSince(nil, now, 34, 5)

	// Exactly today minus rollingDays, at midnight.
	assert.Equal(t, time.Date(2025, 7, 29, 0, 0, 0, 0, time.UTC), since)
}

func TestComputeSince_WithWatermark(t *testing.T) {
	now := time.Date(2025, 9, 1, 14, 30, 45, 0, time.UTC)
	last := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)

	since := ComputeSince(&last, now, 34, 5)

	// Prior boundary minus overlapDays; rollingDays is ignored.
	assert.Equal(t, time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC), since)
}

func TestExtract_ScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	since := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 8, 28, 7, 0, 0, 0, time.UTC)
	fileDate := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)
	lon := -98.49
	service := "Metro"

	rows := pgxmock.NewRows(extractColumns).
		AddRow(
			"t1", &start, (*time.Time)(nil),
			&lon, &lon, &lon, &lon,
			&service, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
			"tapped_trip_view_legs_2025-08-28.csv", &fileDate,
			(*float64)(nil), (*float64)(nil),
			(*string)(nil), (*string)(nil),
		)

	mock.ExpectQuery(`SELECT .+ FROM "mobility"\."raw_leg_trips" WHERE file_date >= \$1`).
		WithArgs(since).
		WillReturnRows(rows)

	legs, err := Extract(context.Background(), mock, "mobility.raw_leg_trips", since)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "t1", legs[0].TripID)
	require.NotNil(t, legs[0].StartTime)
	assert.True(t, start.Equal(*legs[0].StartTime))
	assert.Nil(t, legs[0].EndTime)
	require.NotNil(t, legs[0].ServiceName)
	assert.Equal(t, "Metro", *legs[0].ServiceName)
	require.NotNil(t, legs[0].FileDate)
	assert.True(t, fileDate.Equal(*legs[0].FileDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtract_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM "mobility"\."raw_leg_trips"`).
		WillReturnError(assert.AnError)

	_, err = Extract(context.Background(), mock, "mobility.raw_leg_trips", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: query")
}

func TestMaxFileDate(t *testing.T) {
	d1 := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)

	legs := []model.EnrichedLeg{
		{FileDate: &d1},
		{FileDate: nil},
		{FileDate: &d2},
		{FileDate: &d1},
	}

	max, ok := MaxFileDate(legs)
	require.True(t, ok)
	assert.True(t, d2.Equal(max))

	_, ok = MaxFileDate([]model.EnrichedLeg{{FileDate: nil}})
	assert.False(t, ok)

	_, ok = MaxFileDate(nil)
	assert.False(t, ok)
}
