// Package geometry computes planar trip-leg metrics: it reprojects
// WGS84 coordinates into a configured projected reference (meters) and
// derives straight-line and grid distances in miles.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
)

// Projector converts geographic lon/lat (degrees) into planar x/y
// coordinates in meters.
type Projector interface {
	Project(lon, lat float64) (x, y float64)
}

// LambertParams holds the parameters of a Lambert Conformal Conic
// (two standard parallels) projection. Angles are in degrees, linear
// units in meters.
type LambertParams struct {
	SemiMajorAxis     float64 `yaml:"semi_major_axis" mapstructure:"semi_major_axis"`
	InverseFlattening float64 `yaml:"inverse_flattening" mapstructure:"inverse_flattening"`
	StdParallel1      float64 `yaml:"std_parallel_1" mapstructure:"std_parallel_1"`
	StdParallel2      float64 `yaml:"std_parallel_2" mapstructure:"std_parallel_2"`
	OriginLat         float64 `yaml:"origin_lat" mapstructure:"origin_lat"`
	OriginLon         float64 `yaml:"origin_lon" mapstructure:"origin_lon"`
	FalseEasting      float64 `yaml:"false_easting" mapstructure:"false_easting"`
	FalseNorthing     float64 `yaml:"false_northing" mapstructure:"false_northing"`
}

// TexasSouthCentral returns the NAD83 / Texas South Central parameters
// (EPSG:32140), the default distance CRS for the pipeline.
func TexasSouthCentral() LambertParams {
	return LambertParams{
		SemiMajorAxis:     6378137.0,
		InverseFlattening: 298.257222101,
		StdParallel1:      28.0 + 23.0/60.0,
		StdParallel2:      30.0 + 17.0/60.0,
		OriginLat:         27.0 + 50.0/60.0,
		OriginLon:         -99.0,
		FalseEasting:      600000.0,
		FalseNorthing:     4000000.0,
	}
}

// Lambert is a Lambert Conformal Conic projector with precomputed
// projection constants. Safe for concurrent use.
type Lambert struct {
	e      float64 // eccentricity
	n      float64 // cone constant
	aF     float64 // a * F
	rhoF   float64 // radius at the latitude of origin
	lon0   float64 // central meridian, radians
	fe, fn float64
}

// NewLambert builds a projector from the given parameters.
func NewLambert(p LambertParams) (*Lambert, error) {
	if p.SemiMajorAxis <= 0 || p.InverseFlattening <= 0 {
		return nil, eris.New("geometry: invalid ellipsoid parameters")
	}
	if p.StdParallel1 == p.StdParallel2 {
		return nil, eris.New("geometry: standard parallels must differ")
	}

	f := 1.0 / p.InverseFlattening
	e2 := 2*f - f*f
	e := math.Sqrt(e2)

	phi1 := radians(p.StdParallel1)
	phi2 := radians(p.StdParallel2)
	phiF := radians(p.OriginLat)

	m1 := lccM(phi1, e2)
	m2 := lccM(phi2, e2)
	t1 := lccT(phi1, e)
	t2 := lccT(phi2, e)
	tF := lccT(phiF, e)

	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	bigF := m1 / (n * math.Pow(t1, n))
	aF := p.SemiMajorAxis * bigF

	return &Lambert{
		e:    e,
		n:    n,
		aF:   aF,
		rhoF: aF * math.Pow(tF, n),
		lon0: radians(p.OriginLon),
		fe:   p.FalseEasting,
		fn:   p.FalseNorthing,
	}, nil
}

// Project converts a lon/lat pair (WGS84 degrees) to planar easting
// and northing in meters.
func (l *Lambert) Project(lon, lat float64) (float64, float64) {
	t := lccT(radians(lat), l.e)
	rho := l.aF * math.Pow(t, l.n)
	theta := l.n * (radians(lon) - l.lon0)

	x := l.fe + rho*math.Sin(theta)
	y := l.fn + l.rhoF - rho*math.Cos(theta)
	return x, y
}

func lccM(phi, e2 float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

func lccT(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
