// Package export writes the per-city metrics as CSV, GeoJSON and an HTML heat map.
package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// Paths names the three artifacts, each relative to Dir.
type Paths struct {
	Dir     string
	CSV     string
	GeoJSON string
	Map     string
}

// Written holds the artifact paths produced by WriteAll.
type Written struct {
	CSV     string
	GeoJSON string
	Map     string
}

// WriteAll creates the output directory and writes every artifact.
func WriteAll(p Paths, rows []model.CityMetrics) (*Written, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", p.Dir)
	}

	w := &Written{
		CSV:     filepath.Join(p.Dir, p.CSV),
		GeoJSON: filepath.Join(p.Dir, p.GeoJSON),
		Map:     filepath.Join(p.Dir, p.Map),
	}

	steps := []struct {
		path  string
		write func(io.Writer, []model.CityMetrics) error
	}{
		{w.CSV, WriteCSV},
		{w.GeoJSON, WriteGeoJSON},
		{w.Map, WriteMap},
	}
	for _, s := range steps {
		if err := writeFile(s.path, rows, s.write); err != nil {
			return nil, err
		}
		zap.L().Debug("export: wrote artifact", zap.String("path", s.path))
	}
	return w, nil
}

func writeFile(path string, rows []model.CityMetrics, write func(io.Writer, []model.CityMetrics) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
