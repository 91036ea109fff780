package airquality

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/model"
)

// ErrSchema is returned when a present fallback file lacks the city or pm25 column.
var ErrSchema = eris.New("airquality: schema mismatch")

// FallbackTable holds static PM2.5 values keyed by exact city name.
type FallbackTable struct {
	values map[string]model.NullFloat
}

// LoadFallback reads a city,pm25 table from a .csv or .xlsx file.
func LoadFallback(ctx context.Context, path string) (*FallbackTable, error) {
	tbl, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "airquality: load fallback")
	}
	return NewFallbackTable(tbl)
}

// NewFallbackTable builds a FallbackTable. The first row for a city wins, even
// when its pm25 cell is blank.
func NewFallbackTable(tbl *fetcher.Table) (*FallbackTable, error) {
	cityIdx, pmIdx := tbl.Index("city"), tbl.Index("pm25")
	if cityIdx < 0 || pmIdx < 0 {
		return nil, eris.Wrapf(ErrSchema, "fallback header %v needs city and pm25", tbl.Header)
	}

	f := &FallbackTable{values: make(map[string]model.NullFloat, len(tbl.Rows))}
	for _, row := range tbl.Rows {
		city := fetcher.Cell(row, cityIdx)
		if _, seen := f.values[city]; seen {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fetcher.Cell(row, pmIdx)), 64)
		if err != nil {
			f.values[city] = model.Missing()
			continue
		}
		f.values[city] = model.Some(v)
	}
	return f, nil
}

// Lookup returns the stored value for city, or missing.
func (f *FallbackTable) Lookup(city string) model.NullFloat {
	if f == nil {
		return model.Missing()
	}
	return f.values[city]
}

// Len reports the number of distinct cities in the table.
func (f *FallbackTable) Len() int {
	if f == nil {
		return 0
	}
	return len(f.values)
}

// Name implements Resolver.
func (f *FallbackTable) Name() string { return SourceFallback }

// Resolve implements Resolver.
func (f *FallbackTable) Resolve(_ context.Context, city model.City) model.NullFloat {
	return f.Lookup(city.Name)
}
