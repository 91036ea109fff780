// Package spatial counts TRI facilities that fall within city place boundaries.
package spatial

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/tiger"
)

// ErrSchema is returned when the facility table has no latitude or longitude column.
var ErrSchema = eris.New("spatial: schema mismatch")

// Header rules for TRI basic data files, which number their columns ("12. LATITUDE").
var (
	LatitudeRules  = []fetcher.Rule{fetcher.StripOrdinal(fetcher.HasPrefixFold("lat"))}
	LongitudeRules = []fetcher.Rule{fetcher.StripOrdinal(fetcher.HasPrefixFold("lon"))}
	NameRules      = []fetcher.Rule{fetcher.StripOrdinal(fetcher.EqualsFold("facility name"))}
)

// Facility is a TRI reporting site.
type Facility struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Point returns the facility location as an XY point at [lon, lat].
func (f Facility) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{f.Longitude, f.Latitude}).SetSRID(tiger.SRID)
}

// LoadFacilities reads a facility table from a .csv or .xlsx file. charset names
// the CSV encoding; empty means UTF-8.
func LoadFacilities(ctx context.Context, path, charset string) ([]Facility, error) {
	tbl, err := fetcher.ReadTableWith(ctx, path, fetcher.TableOptions{Charset: charset})
	if err != nil {
		return nil, eris.Wrap(err, "spatial: load facilities")
	}
	return FacilitiesFromTable(tbl)
}

// FacilitiesFromTable converts rows into facilities. Rows with a blank or
// unparseable coordinate are dropped.
func FacilitiesFromTable(tbl *fetcher.Table) ([]Facility, error) {
	latIdx, ok := fetcher.MatchColumn(tbl.Header, LatitudeRules...)
	if !ok {
		return nil, eris.Wrapf(ErrSchema, "no latitude column in %v", tbl.Header)
	}
	lonIdx, ok := fetcher.MatchColumn(tbl.Header, LongitudeRules...)
	if !ok {
		return nil, eris.Wrapf(ErrSchema, "no longitude column in %v", tbl.Header)
	}
	nameIdx, _ := fetcher.MatchColumn(tbl.Header, NameRules...)

	facilities := make([]Facility, 0, len(tbl.Rows))
	var dropped int
	for _, row := range tbl.Rows {
		lat, latOK := parseCoord(fetcher.Cell(row, latIdx))
		lon, lonOK := parseCoord(fetcher.Cell(row, lonIdx))
		if !latOK || !lonOK {
			dropped++
			continue
		}
		facilities = append(facilities, Facility{
			Name:      fetcher.Cell(row, nameIdx),
			Latitude:  lat,
			Longitude: lon,
		})
	}

	if dropped > 0 {
		zap.L().Debug("spatial: dropped facilities without coordinates", zap.Int("dropped", dropped))
	}
	return facilities, nil
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
