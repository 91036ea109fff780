// Package pipeline runs the fetch, join, fallback and export stages in order.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/airquality"
	"github.com/sells-group/air-quality-cli/internal/config"
	"github.com/sells-group/air-quality-cli/internal/emissions"
	"github.com/sells-group/air-quality-cli/internal/export"
	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/metrics"
	"github.com/sells-group/air-quality-cli/internal/model"
	"github.com/sells-group/air-quality-cli/internal/observability"
	"github.com/sells-group/air-quality-cli/internal/spatial"
)

// Phase names.
const (
	PhaseEmissions = "1_emissions"
	PhaseResolvers = "2_resolvers"
	PhaseAssemble  = "3_assemble"
	PhaseSpatial   = "4_spatial"
	PhaseExport    = "5_export"
)

// Pipeline aggregates per-city indicators and writes the exports.
type Pipeline struct {
	cfg      *config.Config
	fetcher  fetcher.Fetcher
	observer airquality.Observer
	clock    clockwork.Clock
	metrics  *observability.Metrics
}

// New creates a Pipeline. observer supplies live PM2.5 readings and f is used
// for the optional place archive download.
func New(cfg *config.Config, f fetcher.Fetcher, observer airquality.Observer, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{cfg: cfg, fetcher: f, observer: observer, clock: clock, metrics: observability.NewMetrics()}
}

// Metrics returns the collectors updated by Run.
func (p *Pipeline) Metrics() *observability.Metrics {
	return p.metrics
}

// Run executes one pass. Absent optional inputs and spatial failures degrade to
// missing values or zero counts; schema errors in present files and export
// failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", report.RunID),
	)
	log.Info("pipeline: starting run", zap.Int("cities", len(p.cfg.Cities)))
	p.metrics.Cities.Set(float64(len(p.cfg.Cities)))
	defer p.writeMetrics(log)

	trackPhase := func(name string, fn func() (*PhaseResult, error)) error {
		start := p.clock.Now()
		pr, err := fn()
		duration := p.clock.Since(start).Milliseconds()

		if pr == nil {
			pr = &PhaseResult{}
		}
		pr.Name = name
		pr.Duration = duration
		p.metrics.PhaseDuration.WithLabelValues(name).Set(float64(duration) / 1000)

		switch {
		case err != nil:
			pr.Status = PhaseStatusFailed
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", duration), zap.Error(err))
		case pr.Status == PhaseStatusSkipped:
			log.Info("pipeline: phase skipped", zap.String("phase", name), zap.Any("metadata", pr.Metadata))
		default:
			pr.Status = PhaseStatusComplete
			log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", duration), zap.Any("metadata", pr.Metadata))
		}
		report.Phases = append(report.Phases, *pr)
		return err
	}

	// Phase 1: emissions.
	var records []emissions.Record
	err := trackPhase(PhaseEmissions, func() (*PhaseResult, error) {
		path := p.dataPath(p.cfg.Data.EmissionsFile)
		if !fileExists(path) {
			return skipped("path", path), nil
		}
		recs, err := emissions.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		records = recs
		return &PhaseResult{Metadata: map[string]any{"records": len(recs)}}, nil
	})
	if err != nil {
		return report, eris.Wrap(err, "pipeline: emissions")
	}

	// Phase 2: pm25 resolver chain.
	var chain *airquality.Chain
	closeResolvers := func() {}
	defer func() { closeResolvers() }()
	err = trackPhase(PhaseResolvers, func() (*PhaseResult, error) {
		resolvers, closeFn, meta, err := p.buildResolvers(ctx)
		if err != nil {
			return nil, err
		}
		closeResolvers = closeFn
		chain = airquality.NewChain(resolvers...)
		return &PhaseResult{Metadata: meta}, nil
	})
	if err != nil {
		return report, eris.Wrap(err, "pipeline: resolvers")
	}

	// Phase 3: assemble pm25 and co2.
	_ = trackPhase(PhaseAssemble, func() (*PhaseResult, error) {
		a := &metrics.Assembler{PM25: chain, Emissions: records, Year: p.cfg.Analysis.Year}
		report.Rows = a.Assemble(ctx, p.cfg.Cities)
		counts := sourceCounts(report.Rows)
		for src, n := range counts {
			p.metrics.PM25Resolutions.WithLabelValues(src).Add(float64(n.(int)))
		}
		return &PhaseResult{Metadata: counts}, nil
	})

	// Phase 4: TRI facility counts.
	_ = trackPhase(PhaseSpatial, func() (*PhaseResult, error) {
		workDir, cleanup, err := p.workDir()
		if err != nil {
			report.Spatial = spatial.OutcomeLoadFailed
			p.metrics.SpatialOutcome.WithLabelValues(report.Spatial.String()).Set(1)
			return skipped("outcome", report.Spatial.String(), "error", err.Error()), nil
		}
		defer cleanup()

		stage := &spatial.Stage{
			FacilitiesPath:    p.dataPath(p.cfg.Data.FacilitiesFile),
			FacilitiesCharset: p.cfg.Data.FacilitiesCharset,
			PlacesArchive:     p.dataPath(p.cfg.Data.PlacesArchive),
			WorkDir:           workDir,
			PlaceURL:          p.cfg.Tiger.PlaceURL,
			Fetcher:           p.fetcher,
		}
		res := stage.Run(ctx, model.CityNames(p.cfg.Cities))
		report.Spatial = res.Outcome
		metrics.ApplyCounts(report.Rows, res.Counts)
		p.metrics.SpatialOutcome.WithLabelValues(res.Outcome.String()).Set(1)
		var matched int
		for _, r := range report.Rows {
			matched += r.TRIFacilities
		}
		p.metrics.TRIFacilities.Set(float64(matched))

		if res.Outcome != spatial.OutcomeJoined {
			return skipped("outcome", res.Outcome.String()), nil
		}
		return &PhaseResult{Metadata: map[string]any{
			"outcome":    res.Outcome.String(),
			"facilities": res.Facilities,
			"places":     res.Places,
		}}, nil
	})

	// Phase 5: export.
	err = trackPhase(PhaseExport, func() (*PhaseResult, error) {
		w, err := export.WriteAll(export.Paths{
			Dir:     p.cfg.Output.Dir,
			CSV:     p.cfg.Output.CSVFile,
			GeoJSON: p.cfg.Output.GeoJSONFile,
			Map:     p.cfg.Output.MapFile,
		}, report.Rows)
		if err != nil {
			return nil, err
		}
		report.Written = w
		return &PhaseResult{Metadata: map[string]any{"rows": len(report.Rows)}}, nil
	})
	if err != nil {
		return report, eris.Wrap(err, "pipeline: export")
	}

	p.metrics.LastRunSuccess.Set(1)
	log.Info("pipeline: run complete", zap.String("output_dir", p.cfg.Output.Dir))
	return report, nil
}

func (p *Pipeline) writeMetrics(log *zap.Logger) {
	p.metrics.LastRunUnix.Set(float64(p.clock.Now().Unix()))
	if p.cfg.Metrics.Textfile == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		log.Warn("pipeline: metrics textfile not written", zap.Error(err))
	}
}

// buildResolvers returns the pm25 resolvers in priority order: live, cache, fallback.
func (p *Pipeline) buildResolvers(ctx context.Context) ([]airquality.Resolver, func(), map[string]any, error) {
	meta := map[string]any{}
	closeFn := func() {}

	var cache *airquality.Cache
	if p.cfg.Cache.Path != "" {
		c, err := airquality.OpenCache(ctx, p.cfg.Cache.Path, time.Duration(p.cfg.Cache.TTLHours)*time.Hour, p.clock)
		if err != nil {
			zap.L().Warn("pipeline: observation cache unavailable", zap.String("path", p.cfg.Cache.Path), zap.Error(err))
		} else {
			cache = c
			closeFn = func() { _ = c.Close() }
		}
	}

	var resolvers []airquality.Resolver
	if p.observer != nil {
		resolvers = append(resolvers, &airquality.Live{Observer: p.observer, Cache: cache})
	}
	if cache != nil {
		resolvers = append(resolvers, cache)
	}

	path := p.dataPath(p.cfg.Data.FallbackFile)
	if fileExists(path) {
		fb, err := airquality.LoadFallback(ctx, path)
		if err != nil {
			closeFn()
			return nil, func() {}, nil, err
		}
		resolvers = append(resolvers, fb)
		meta["fallback_cities"] = fb.Len()
	}

	names := make([]string, len(resolvers))
	for i, r := range resolvers {
		names[i] = r.Name()
	}
	meta["resolvers"] = names
	return resolvers, closeFn, meta, nil
}

func (p *Pipeline) workDir() (string, func(), error) {
	if p.cfg.Tiger.WorkDir != "" {
		if err := os.MkdirAll(p.cfg.Tiger.WorkDir, 0o755); err != nil {
			return "", nil, eris.Wrap(err, "pipeline: create work dir")
		}
		return p.cfg.Tiger.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "air-quality-tiger-")
	if err != nil {
		return "", nil, eris.Wrap(err, "pipeline: create temp work dir")
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (p *Pipeline) dataPath(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(p.cfg.Data.Dir, name)
}

func sourceCounts(rows []model.CityMetrics) map[string]any {
	counts := map[string]any{}
	for _, r := range rows {
		src := r.PM25Source
		if src == "" {
			src = "missing"
		}
		n, _ := counts[src].(int)
		counts[src] = n + 1
	}
	return counts
}

func skipped(kv ...string) *PhaseResult {
	meta := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	return &PhaseResult{Status: PhaseStatusSkipped, Metadata: meta}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
