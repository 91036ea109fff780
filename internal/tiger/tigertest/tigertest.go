// Package tigertest builds small TIGER-style place shapefiles and archives for tests.
package tigertest

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// Record is one place polygon. Each ring is a closed list of points.
type Record struct {
	Name  string
	GEOID string
	Rings [][]shp.Point
}

// Square returns a closed ring covering [minX,maxX] x [minY,maxY].
func Square(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

// WriteShapefile writes records to path (.shp plus .shx and .dbf siblings).
// nameField is the attribute holding Record.Name, normally "NAME".
//
// go-shp v0.1.1 creates the attribute table as "<base>dbf" with no dot while
// its reader opens "<base>.dbf", so the file is renamed after Close.
func WriteShapefile(t testing.TB, path, nameField string, records []Record) string {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField(nameField, 100),
		shp.StringField("GEOID", 7),
	})
	for _, r := range records {
		poly := shp.Polygon(*shp.NewPolyLine(r.Rings))
		row := int(w.Write(&poly))
		w.WriteAttribute(row, 0, r.Name)
		w.WriteAttribute(row, 1, r.GEOID)
	}
	w.Close()

	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	require.FileExists(t, base+".dbf")

	return path
}

// WritePlaceArchive writes records as tl_test_place.shp and zips the shapefile
// components into dir/tl_test_place.zip. Returns the zip path.
func WritePlaceArchive(t testing.TB, dir string, records []Record) string {
	t.Helper()

	shpPath := WriteShapefile(t, filepath.Join(t.TempDir(), "tl_test_place.shp"), "NAME", records)
	return ZipShapefile(t, shpPath, filepath.Join(dir, "tl_test_place.zip"))
}

// ZipShapefile zips the .shp, .shx and .dbf components of shpPath into zipPath.
func ZipShapefile(t testing.TB, shpPath, zipPath string) string {
	t.Helper()

	base := strings.TrimSuffix(shpPath, ".shp")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	defer out.Close() //nolint:errcheck

	zw := zip.NewWriter(out)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		in, err := os.Open(base + ext)
		require.NoError(t, err)
		entry, err := zw.Create(filepath.Base(base + ext))
		require.NoError(t, err)
		_, err = io.Copy(entry, in)
		require.NoError(t, err)
		_ = in.Close()
	}
	require.NoError(t, zw.Close())

	return zipPath
}

// FirstPolygonNumPartsOffset is the byte offset of NumParts in the first
// polygon record: file header, record header, shape type, then the bounding box.
const FirstPolygonNumPartsOffset = 100 + 8 + 4 + 32

// CorruptNumParts overwrites the first record's part count with 0xFFFFFFFF.
func CorruptNumParts(t testing.TB, shpPath string) {
	t.Helper()
	f, err := os.OpenFile(shpPath, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	_, err = f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF}, FirstPolygonNumPartsOffset)
	require.NoError(t, err)
}

// Truncate cuts n bytes off the end of the file at path.
func Truncate(t testing.TB, path string, n int64) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-n))
}
