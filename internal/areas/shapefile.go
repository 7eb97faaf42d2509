package areas

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// LoadShapefile reads the area polygon layer from a shapefile, keeping
// only the configured identifier attribute. Records without a polygon
// geometry or a non-empty code are skipped.
func LoadShapefile(shpPath, codeField string) (*Layer, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "areas: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	codeIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, codeField) {
			codeIdx = i
			break
		}
	}
	if codeIdx < 0 {
		return nil, eris.Errorf("areas: field %q not found in %s", codeField, shpPath)
	}

	var list []Area
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		code := strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		if code == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		list = append(list, Area{Code: code, Polygon: mp})
	}

	if skipped > 0 {
		zap.L().Debug("areas: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return NewLayer(list), nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a
// geom.MultiPolygon. Shapefile winding order classifies parts:
// clockwise rings are outer boundaries, counter-clockwise rings are
// holes in the preceding outer ring.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var cur *geom.Polygon

	flush := func() {
		if cur == nil {
			return
		}
		if err := mp.Push(cur); err != nil {
			zap.L().Debug("areas: skipping malformed polygon part", zap.Error(err))
		}
		cur = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		// A closed ring needs at least four points.
		if len(flat) < 8 {
			zap.L().Debug("areas: skipping degenerate polygon ring", zap.Int32("part", i))
			continue
		}

		// A hole before any outer ring is malformed; promote it so
		// the record still contributes a boundary.
		outer := !xy.IsRingCounterClockwise(geom.XY, flat)
		if outer || cur == nil {
			flush()
			cur = geom.NewPolygon(geom.XY)
		}
		if err := cur.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("areas: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
