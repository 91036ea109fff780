package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/air-quality-cli/internal/model"
)

var testRows = []model.CityMetrics{
	{City: "New York", Latitude: 40.7128, Longitude: -74.006, PM25: model.Some(8.26), CO2: model.Some(15), TRIFacilities: 3},
	{City: "Tampa", Latitude: 27.9506, Longitude: -82.4572},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testRows))

	want := "city,latitude,longitude,pm25,co2,tri_facilities\n" +
		"New York,40.7128,-74.006,8.26,15,3\n" +
		"Tampa,27.9506,-82.4572,,,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_ByteStable(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, testRows))
	require.NoError(t, WriteCSV(&b, testRows))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testRows))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)

	ny := doc.Features[0]
	assert.Equal(t, "Point", ny.Geometry.Type)
	assert.Equal(t, []float64{-74.006, 40.7128}, ny.Geometry.Coordinates)
	assert.Equal(t, "New York", ny.Properties["city"])
	assert.Equal(t, 8.26, ny.Properties["pm25"])
	assert.Equal(t, 3.0, ny.Properties["tri_facilities"])

	tampa := doc.Features[1].Properties
	require.Contains(t, tampa, "pm25")
	assert.Nil(t, tampa["pm25"])
	assert.Nil(t, tampa["co2"])
	assert.Equal(t, 0.0, tampa["tri_facilities"])
}

func TestPopup(t *testing.T) {
	assert.Equal(t,
		"<b>New York</b><br>PM2.5: 8.3 µg/m³<br>CO₂: 15.0 t/day<br>TRI facilities: 3",
		Popup(testRows[0]))

	missing := Popup(testRows[1])
	assert.Contains(t, missing, "PM2.5: N/A")
	assert.Contains(t, missing, "CO₂: N/A")
	assert.Contains(t, missing, "TRI facilities: 0")
}

func TestPopup_EscapesCity(t *testing.T) {
	p := Popup(model.CityMetrics{City: "<script>"})
	assert.True(t, strings.HasPrefix(p, "<b>&lt;script&gt;</b>"))
}

func TestWriteMap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMap(&buf, testRows))

	out := buf.String()
	assert.Contains(t, out, "leaflet-heat.js")
	assert.Contains(t, out, "basemaps.cartocdn.com/light_all")
	assert.Contains(t, out, "L.heatLayer")
	assert.Contains(t, out, "radius: 5")
	assert.Contains(t, out, "New York")
	assert.Contains(t, out, "Tampa")
	assert.Contains(t, out, "TRI facilities: 0")
	assert.NotContains(t, out, "<b>New York", "popup HTML is escaped inside the script block")
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	p := Paths{Dir: dir, CSV: "m.csv", GeoJSON: "m.geojson", Map: "m.html"}

	w, err := WriteAll(p, testRows)
	require.NoError(t, err)
	assert.FileExists(t, w.CSV)
	assert.FileExists(t, w.GeoJSON)
	assert.FileExists(t, w.Map)

	first, err := os.ReadFile(w.CSV)
	require.NoError(t, err)

	// Re-running into an existing directory succeeds and is byte-stable.
	_, err = WriteAll(p, testRows)
	require.NoError(t, err)
	second, err := os.ReadFile(w.CSV)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteAll_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := WriteAll(Paths{Dir: filepath.Join(file, "sub"), CSV: "a", GeoJSON: "b", Map: "c"}, testRows)
	assert.Error(t, err)
}
