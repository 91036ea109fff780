// Package metrics assembles one CityMetrics row per configured city.
package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/emissions"
	"github.com/sells-group/air-quality-cli/internal/model"
)

// PM25Resolver supplies a PM2.5 value for a city and the name of its source.
type PM25Resolver interface {
	Resolve(ctx context.Context, city model.City) (model.NullFloat, string)
}

// Assembler fills pm25 and co2 for each city.
type Assembler struct {
	PM25      PM25Resolver
	Emissions []emissions.Record
	Year      int
}

// NewRows returns one row per city in input order with every metric unset and
// TRIFacilities at zero.
func NewRows(cities []model.City) []model.CityMetrics {
	rows := make([]model.CityMetrics, len(cities))
	for i, c := range cities {
		rows[i] = model.CityMetrics{
			City:      c.Name,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		}
	}
	return rows
}

// Assemble builds the rows for cities, resolving pm25 and then co2 in city order.
func (a *Assembler) Assemble(ctx context.Context, cities []model.City) []model.CityMetrics {
	log := zap.L().With(zap.String("component", "metrics.assemble"))

	rows := NewRows(cities)
	for i, c := range cities {
		if a.PM25 != nil {
			rows[i].PM25, rows[i].PM25Source = a.PM25.Resolve(ctx, c)
		}
		rows[i].CO2 = emissions.MeanForYear(a.Emissions, c.Name, a.Year)

		log.Debug("city resolved",
			zap.String("city", c.Name),
			zap.String("pm25", rows[i].PM25.Render("%.1f")),
			zap.String("pm25_source", rows[i].PM25Source),
			zap.String("co2", rows[i].CO2.Render("%.1f")),
		)
	}
	return rows
}

// ApplyCounts adds per-city facility counts to rows by exact name. Names not in
// rows are ignored and rows without a count keep their current value.
func ApplyCounts(rows []model.CityMetrics, counts map[string]int) {
	for i := range rows {
		rows[i].TRIFacilities += counts[rows[i].City]
	}
}
