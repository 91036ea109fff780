// Package emissions normalizes city CO2 emission exports into a canonical record set.
package emissions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/model"
)

// ErrSchema is returned when a present emissions file lacks a required column.
var ErrSchema = eris.New("emissions: schema mismatch")

// Record is one normalized emissions row.
type Record struct {
	City      string
	Date      time.Time
	Emissions float64
	Year      int
}

// EmissionColumnRules locate the emissions value column. The first header
// column matching any rule wins.
var EmissionColumnRules = []fetcher.Rule{
	fetcher.HasPrefixFold("emission"),
	fetcher.EqualsFold("value"),
	fetcher.EqualsFold("co2"),
}

// DateLayouts are tried in order; the first layout that parses wins.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// Load reads and normalizes an emissions table from path.
func Load(ctx context.Context, path string) ([]Record, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "emissions: load")
	}
	return Normalize(tbl)
}

// Normalize maps a raw table onto Records. Rows with an unparseable date or
// emissions value are dropped; a missing city, date or emissions column is ErrSchema.
func Normalize(tbl *fetcher.Table) ([]Record, error) {
	emiIdx, ok := fetcher.MatchColumn(tbl.Header, EmissionColumnRules...)
	if !ok {
		return nil, eris.Wrapf(ErrSchema, "no emissions column in %v", tbl.Header)
	}
	cityIdx := tbl.Index("city")
	if cityIdx < 0 {
		return nil, eris.Wrap(ErrSchema, "no city column")
	}
	dateIdx := tbl.Index("date")
	if dateIdx < 0 {
		return nil, eris.Wrap(ErrSchema, "no date column")
	}

	records := make([]Record, 0, len(tbl.Rows))
	var badDate, badValue int
	for _, row := range tbl.Rows {
		d, ok := ParseDate(fetcher.Cell(row, dateIdx))
		if !ok {
			badDate++
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fetcher.Cell(row, emiIdx)), 64)
		if err != nil || !model.Some(v).Valid {
			badValue++
			continue
		}
		records = append(records, Record{
			City:      fetcher.Cell(row, cityIdx),
			Date:      d,
			Emissions: v,
			Year:      d.Year(),
		})
	}

	if badDate > 0 || badValue > 0 {
		zap.L().Debug("emissions: dropped rows",
			zap.String("column", tbl.Header[emiIdx]),
			zap.Int("bad_date", badDate),
			zap.Int("bad_value", badValue),
		)
	}

	return records, nil
}

// ParseDate parses s with the first matching layout in DateLayouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MeanForYear returns the mean emissions for city in year, or missing when no rows match.
func MeanForYear(records []Record, city string, year int) model.NullFloat {
	var sum float64
	var n int
	for _, r := range records {
		if r.City == city && r.Year == year {
			sum += r.Emissions
			n++
		}
	}
	if n == 0 {
		return model.Missing()
	}
	return model.Some(sum / float64(n))
}
