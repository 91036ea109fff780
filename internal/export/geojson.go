package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// FeatureCollection converts rows into point features at [lon, lat].
func FeatureCollection(rows []model.CityMetrics) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	for _, r := range rows {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{r.Longitude, r.Latitude}),
			Properties: map[string]any{
				"city":           r.City,
				"latitude":       r.Latitude,
				"longitude":      r.Longitude,
				"pm25":           r.PM25.Ptr(),
				"co2":            r.CO2.Ptr(),
				"tri_facilities": r.TRIFacilities,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes rows as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, rows []model.CityMetrics) error {
	data, err := FeatureCollection(rows).MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "geojson: marshal features")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "geojson: write")
	}
	return nil
}
