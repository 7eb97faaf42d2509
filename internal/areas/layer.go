// Package areas loads the area-code polygon layer and answers
// point-in-polygon lookups for trip-leg endpoints.
package areas

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Area is one (code, polygon) pair from the source layer.
type Area struct {
	Code    string
	Polygon *geom.MultiPolygon

	// planarArea caches the polygon's planar area for tie-breaking.
	planarArea float64
}

// Layer is a read-only set of area polygons, loaded once per run.
type Layer struct {
	areas []Area
}

// NewLayer builds a layer from the given areas. Insertion order is
// irrelevant to lookups: containment ties resolve to the smallest
// polygon, so results do not depend on source-layer ordering.
func NewLayer(areas []Area) *Layer {
	for i := range areas {
		areas[i].planarArea = math.Abs(areas[i].Polygon.Area())
	}
	return &Layer{areas: areas}
}

// Len returns the number of areas in the layer.
func (l *Layer) Len() int { return len(l.areas) }

// Locate returns the area code of the polygon containing the point,
// or ok=false when no polygon contains it. When a point falls inside
// overlapping polygons, the smallest-area polygon wins.
func (l *Layer) Locate(lon, lat float64) (string, bool) {
	p := geom.Coord{lon, lat}

	var (
		best     string
		bestArea float64
		found    bool
	)
	for i := range l.areas {
		a := &l.areas[i]
		if !containsPoint(a.Polygon, p) {
			continue
		}
		if !found || a.planarArea < bestArea {
			best = a.Code
			bestArea = a.planarArea
			found = true
		}
	}
	return best, found
}

// containsPoint reports whether the point lies inside the multipolygon:
// inside a polygon's outer ring and outside all of its holes.
func containsPoint(mp *geom.MultiPolygon, p geom.Coord) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
