package spatial

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/tiger"
)

// Outcome classifies how the spatial stage finished.
type Outcome int

// Stage outcomes. Only OutcomeJoined carries counts.
const (
	OutcomeJoined Outcome = iota
	OutcomeMissingInput
	OutcomeSchemaMismatch
	OutcomeLoadFailed
	OutcomeJoinFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeJoined:
		return "joined"
	case OutcomeMissingInput:
		return "missing_input"
	case OutcomeSchemaMismatch:
		return "schema_mismatch"
	case OutcomeLoadFailed:
		return "load_failed"
	case OutcomeJoinFailed:
		return "join_failed"
	default:
		return "unknown"
	}
}

// Result is the product of a Stage run.
type Result struct {
	Outcome    Outcome
	Counts     map[string]int
	Facilities int
	Places     int
	Err        error
}

// Stage joins the facility table against the place archive.
type Stage struct {
	FacilitiesPath    string
	FacilitiesCharset string
	PlacesArchive     string
	WorkDir           string

	// PlaceURL, when set, is used to download PlacesArchive if it is absent.
	PlaceURL string
	Fetcher  fetcher.Fetcher
}

// Run executes the stage. It never fails the run: every problem is reported
// through Result.Outcome, and Counts is empty unless the join succeeded.
func (s *Stage) Run(ctx context.Context, names []string) Result {
	log := zap.L().With(zap.String("component", "spatial.stage"))

	res := s.run(ctx, names)
	if res.Outcome != OutcomeJoined {
		res.Counts = map[string]int{}
		log.Info("spatial join skipped", zap.Stringer("outcome", res.Outcome), zap.Error(res.Err))
		return res
	}

	log.Info("spatial join complete",
		zap.Int("facilities", res.Facilities),
		zap.Int("places", res.Places),
		zap.Int("matched_cities", len(res.Counts)),
	)
	return res
}

func (s *Stage) run(ctx context.Context, names []string) Result {
	if !fileExists(s.FacilitiesPath) {
		return Result{Outcome: OutcomeMissingInput, Err: eris.Errorf("spatial: facility file %s not found", s.FacilitiesPath)}
	}
	if !fileExists(s.PlacesArchive) {
		if err := s.fetchArchive(ctx); err != nil {
			return Result{Outcome: OutcomeMissingInput, Err: err}
		}
	}

	facilities, err := LoadFacilities(ctx, s.FacilitiesPath, s.FacilitiesCharset)
	if err != nil {
		return Result{Outcome: classify(err), Err: err}
	}

	places, err := tiger.OpenPlaceArchive(s.PlacesArchive, s.WorkDir, names)
	if err != nil {
		return Result{Outcome: classify(err), Err: err}
	}

	counts, err := CountWithin(ctx, facilities, places)
	if err != nil {
		return Result{Outcome: OutcomeJoinFailed, Err: err}
	}

	return Result{
		Outcome:    OutcomeJoined,
		Counts:     counts,
		Facilities: len(facilities),
		Places:     len(places),
	}
}

func (s *Stage) fetchArchive(ctx context.Context) error {
	if s.PlaceURL == "" || s.Fetcher == nil {
		return eris.Errorf("spatial: place archive %s not found", s.PlacesArchive)
	}
	if err := tiger.Download(ctx, s.Fetcher, s.PlaceURL, s.PlacesArchive); err != nil {
		return eris.Wrap(err, "spatial: fetch place archive")
	}
	return nil
}

func classify(err error) Outcome {
	if eris.Is(err, ErrSchema) || eris.Is(err, tiger.ErrSchema) {
		return OutcomeSchemaMismatch
	}
	return OutcomeLoadFailed
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
