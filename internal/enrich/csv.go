// Package enrich turns downloaded trip-leg files into enriched raw
// rows: provenance attached, planar distances computed, endpoints
// joined to the area polygon layer.
package enrich

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// RawLeg is one CSV record with fields still in their source string
// form. Absent columns read as empty strings.
type RawLeg struct {
	TripID         string
	StartTime      string
	EndTime        string
	StartLongitude string
	StartLatitude  string
	EndLongitude   string
	EndLatitude    string
	ServiceName    string
	RouteShortName string
	Mode           string
	StartStopName  string
	EndStopName    string
}

// coordinateColumns must all be present in a leg file; a missing one
// signals a schema break upstream and fails the whole file.
var coordinateColumns = []string{
	"start_longitude",
	"start_latitude",
	"end_longitude",
	"end_latitude",
}

// ReadLegs parses a leg CSV stream. The header row is required, and
// the four coordinate columns are structurally mandatory; every other
// column degrades to empty values when absent.
func ReadLegs(r io.Reader) ([]RawLeg, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("enrich: empty file, no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read header")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range coordinateColumns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("enrich: expected column %q not found", col)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var legs []RawLeg
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "enrich: read record")
		}
		legs = append(legs, RawLeg{
			TripID:         field(rec, "user_trip_id"),
			StartTime:      field(rec, "start_time"),
			EndTime:        field(rec, "end_time"),
			StartLongitude: field(rec, "start_longitude"),
			StartLatitude:  field(rec, "start_latitude"),
			EndLongitude:   field(rec, "end_longitude"),
			EndLatitude:    field(rec, "end_latitude"),
			ServiceName:    field(rec, "service_name"),
			RouteShortName: field(rec, "route_short_name"),
			Mode:           field(rec, "mode"),
			StartStopName:  field(rec, "start_stop_name"),
			EndStopName:    field(rec, "end_stop_name"),
		})
	}
	return legs, nil
}
