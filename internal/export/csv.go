package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// CSVHeader is the column order of metrics_by_city.csv.
var CSVHeader = []string{"city", "latitude", "longitude", "pm25", "co2", "tri_facilities"}

// WriteCSV writes rows in order. Missing values are empty cells.
func WriteCSV(w io.Writer, rows []model.CityMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, r := range rows {
		rec := []string{
			r.City,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			formatNull(r.PM25),
			formatNull(r.CO2),
			strconv.Itoa(r.TRIFacilities),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "csv: write row %s", r.City)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNull(n model.NullFloat) string {
	if !n.Valid {
		return ""
	}
	return formatFloat(n.Value)
}
