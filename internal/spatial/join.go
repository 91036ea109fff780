package spatial

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/sells-group/air-quality-cli/internal/tiger"
)

// Within reports whether c lies strictly inside mp. Rings are combined by
// even-odd parity, so a point inside a hole ring is outside. A point on any
// ring edge is not within.
func Within(mp *geom.MultiPolygon, c geom.Coord) bool {
	if !mp.Bounds().OverlapsPoint(geom.XY, c) {
		return false
	}

	inside := false
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			switch xy.LocatePointInRing(geom.XY, c, poly.LinearRing(j).FlatCoords()) {
			case location.Boundary:
				return false
			case location.Interior:
				inside = !inside
			}
		}
	}
	return inside
}

// CountWithin counts, per place name, the facilities strictly within each
// place record. A facility inside two records sharing a name counts twice.
// Names with no matches are absent from the result.
func CountWithin(ctx context.Context, facilities []Facility, places []tiger.Place) (map[string]int, error) {
	for _, p := range places {
		if p.Geometry == nil {
			return nil, eris.Errorf("spatial: place %q has no geometry", p.Name)
		}
		if p.Geometry.Layout() != geom.XY {
			return nil, eris.Errorf("spatial: place %q has unsupported layout %v", p.Name, p.Geometry.Layout())
		}
	}

	counts := make(map[string]int)
	for i, f := range facilities {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "spatial: join canceled")
			}
		}
		c := f.Point().Coords()
		for _, p := range places {
			if Within(p.Geometry, c) {
				counts[p.Name]++
			}
		}
	}
	return counts, nil
}
