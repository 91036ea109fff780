// Package tiger reads Census TIGER/Line place boundaries.
package tiger

import (
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
)

// ErrSchema is returned when the place shapefile has no NAME attribute.
var ErrSchema = eris.New("tiger: schema mismatch")

// NameField is the place name attribute in TIGER/Line place files.
const NameField = "NAME"

// Place is a named boundary record.
type Place struct {
	Name     string
	GEOID    string
	Geometry *geom.MultiPolygon
}

// ParsePlaces reads the shapefile and returns the records whose NAME exactly
// matches one of names. Records without polygon geometry are skipped. A
// truncated or corrupt file is an error, never a partial result.
func ParsePlaces(shpPath string, names []string) (places []Place, err error) {
	// go-shp trusts record counts and panics on corrupt ones.
	defer func() {
		if r := recover(); r != nil {
			places = nil
			err = eris.Errorf("tiger: corrupt shapefile %s: %v", filepath.Base(shpPath), r)
		}
	}()

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx, geoidIdx := -1, -1
	for i, f := range reader.Fields() {
		switch strings.TrimRight(f.String(), "\x00") {
		case NameField:
			nameIdx = i
		case "GEOID":
			geoidIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, eris.Wrapf(ErrSchema, "%s has no %s field", filepath.Base(shpPath), NameField)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		name := cleanAttr(reader.Attribute(nameIdx))
		if _, ok := wanted[name]; !ok {
			continue
		}

		mp := ShapeToMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}

		p := Place{Name: name, Geometry: mp}
		if geoidIdx >= 0 {
			p.GEOID = cleanAttr(reader.Attribute(geoidIdx))
		}
		places = append(places, p)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tiger: read shapefile %s", filepath.Base(shpPath))
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped place records without polygon geometry", zap.Int("skipped", skipped))
	}
	return places, nil
}

// OpenPlaceArchive extracts a TIGER place ZIP into workDir and parses its shapefile.
func OpenPlaceArchive(zipPath, workDir string, names []string) ([]Place, error) {
	extractDir := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath)))

	paths, err := fetcher.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: extract place archive")
	}

	shpPath, err := fetcher.FindFileByExt(paths, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "tiger: find .shp file")
	}

	return ParsePlaces(shpPath, names)
}

func cleanAttr(v string) string {
	return strings.TrimSpace(strings.TrimRight(v, "\x00"))
}
