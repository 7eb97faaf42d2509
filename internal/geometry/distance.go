package geometry

import "math"

// metersPerMile converts projected meters into statute miles.
const metersPerMile = 1609.344

// Distances holds the two trip-leg distance metrics, in miles.
type Distances struct {
	EuclideanMiles float64
	ManhattanMiles float64
}

// Engine derives planar distance metrics between geographic points.
// Callers must filter out non-finite coordinates before reaching it.
type Engine struct {
	proj Projector
}

// NewEngine creates an engine over the given planar projector.
func NewEngine(proj Projector) *Engine {
	return &Engine{proj: proj}
}

// Distances projects both endpoints into the planar CRS and returns
// straight-line and grid distances in miles.
func (e *Engine) Distances(startLon, startLat, endLon, endLat float64) Distances {
	x1, y1 := e.proj.Project(startLon, startLat)
	x2, y2 := e.proj.Project(endLon, endLat)

	dx := x2 - x1
	dy := y2 - y1

	return Distances{
		EuclideanMiles: math.Hypot(dx, dy) / metersPerMile,
		ManhattanMiles: (math.Abs(dx) + math.Abs(dy)) / metersPerMile,
	}
}
