package export

import (
	"html"
	"html/template"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// Map defaults.
const (
	MapCenterLat = 39.5
	MapCenterLon = -98.35
	MapZoom      = 4
)

// Popup renders the marker popup for a row. pm25 and co2 are shown with one
// decimal, or N/A when missing.
func Popup(r model.CityMetrics) string {
	return "<b>" + html.EscapeString(r.City) + "</b>" +
		"<br>PM2.5: " + r.PM25.Render("%.1f") + " µg/m³" +
		"<br>CO₂: " + r.CO2.Render("%.1f") + " t/day" +
		"<br>TRI facilities: " + strconv.Itoa(r.TRIFacilities)
}

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type mapData struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Heat      [][3]float64
	Markers   []marker
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Air quality by city</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer("https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png", {
  attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
  subdomains: "abcd",
  maxZoom: 20
}).addTo(map);
L.heatLayer({{.Heat}}).addTo(map);
{{.Markers}}.forEach(function (m) {
  L.circleMarker([m.lat, m.lon], {
    radius: 5,
    color: "black",
    fill: true,
    fillOpacity: 0.7
  }).bindPopup(m.popup).addTo(map);
});
</script>
</body>
</html>
`))

// WriteMap renders the Leaflet heat map. Only rows with pm25 feed the heat layer;
// every row gets a marker.
func WriteMap(w io.Writer, rows []model.CityMetrics) error {
	data := mapData{
		CenterLat: MapCenterLat,
		CenterLon: MapCenterLon,
		Zoom:      MapZoom,
		Heat:      make([][3]float64, 0, len(rows)),
		Markers:   make([]marker, 0, len(rows)),
	}
	for _, r := range rows {
		if r.PM25.Valid {
			data.Heat = append(data.Heat, [3]float64{r.Latitude, r.Longitude, r.PM25.Value})
		}
		data.Markers = append(data.Markers, marker{Lat: r.Latitude, Lon: r.Longitude, Popup: Popup(r)})
	}

	if err := mapTemplate.Execute(w, data); err != nil {
		return eris.Wrap(err, "map: render template")
	}
	return nil
}
