package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planarIdentity treats lon/lat as planar meters directly, which lets
// distance tests assert exact values without projection math.
type planarIdentity struct{}

func (planarIdentity) Project(lon, lat float64) (float64, float64) { return lon, lat }

func TestDistances_CoincidentPoints(t *testing.T) {
	eng := NewEngine(planarIdentity{})
	d := eng.Distances(100, 200, 100, 200)
	assert.Zero(t, d.EuclideanMiles)
	assert.Zero(t, d.ManhattanMiles)
}

func TestDistances_SingleAxisOffset(t *testing.T) {
	eng := NewEngine(planarIdentity{})

	// Points differing by exactly one mile of meters along one axis:
	// euclidean and manhattan agree.
	d := eng.Distances(0, 0, 1609.344, 0)
	assert.InDelta(t, 1.0, d.EuclideanMiles, 1e-12)
	assert.InDelta(t, 1.0, d.ManhattanMiles, 1e-12)

	d = eng.Distances(0, 0, 0, 3218.688)
	assert.InDelta(t, 2.0, d.EuclideanMiles, 1e-12)
	assert.InDelta(t, 2.0, d.ManhattanMiles, 1e-12)
}

func TestDistances_DiagonalManhattanExceedsEuclidean(t *testing.T) {
	eng := NewEngine(planarIdentity{})
	d := eng.Distances(0, 0, 3000, 4000)
	assert.InDelta(t, 5000.0/1609.344, d.EuclideanMiles, 1e-9)
	assert.InDelta(t, 7000.0/1609.344, d.ManhattanMiles, 1e-9)
	assert.Greater(t, d.ManhattanMiles, d.EuclideanMiles)
}

func TestNewLambert_InvalidParams(t *testing.T) {
	_, err := NewLambert(LambertParams{})
	require.Error(t, err)

	p := TexasSouthCentral()
	p.StdParallel2 = p.StdParallel1
	_, err = NewLambert(p)
	require.Error(t, err)
}

func TestLambert_ProjectionOrigin(t *testing.T) {
	p := TexasSouthCentral()
	proj, err := NewLambert(p)
	require.NoError(t, err)

	// The grid origin maps to the false easting/northing exactly.
	x, y := proj.Project(p.OriginLon, p.OriginLat)
	assert.InDelta(t, p.FalseEasting, x, 1e-6)
	assert.InDelta(t, p.FalseNorthing, y, 1e-6)
}

func TestLambert_EastingIncreasesEastward(t *testing.T) {
	p := TexasSouthCentral()
	proj, err := NewLambert(p)
	require.NoError(t, err)

	x1, _ := proj.Project(-98.5, 29.4)
	x2, _ := proj.Project(-98.4, 29.4)
	assert.Greater(t, x2, x1)

	_, y1 := proj.Project(-98.5, 29.4)
	_, y2 := proj.Project(-98.5, 29.5)
	assert.Greater(t, y2, y1)
}

func TestLambert_OneDegreeLongitudeScale(t *testing.T) {
	p := TexasSouthCentral()
	proj, err := NewLambert(p)
	require.NoError(t, err)

	// Near the standard parallels a degree of longitude is roughly
	// 97 km; sanity-check the projection is in meters.
	eng := NewEngine(proj)
	d := eng.Distances(-98.5, 29.4, -97.5, 29.4)
	assert.Greater(t, d.EuclideanMiles, 55.0)
	assert.Less(t, d.EuclideanMiles, 70.0)
}
