package pipeline

import (
	"github.com/sells-group/air-quality-cli/internal/export"
	"github.com/sells-group/air-quality-cli/internal/model"
	"github.com/sells-group/air-quality-cli/internal/spatial"
)

// PhaseStatus is the terminal state of a phase.
type PhaseStatus string

// Phase statuses.
const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusSkipped  PhaseStatus = "skipped"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult records one phase of a run.
type PhaseResult struct {
	Name     string
	Status   PhaseStatus
	Duration int64 // milliseconds
	Metadata map[string]any
}

// Report summarizes a completed run.
type Report struct {
	RunID   string
	Rows    []model.CityMetrics
	Spatial spatial.Outcome
	Written *export.Written
	Phases  []PhaseResult
}

// Phase returns the named phase result, or nil.
func (r *Report) Phase(name string) *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i]
		}
	}
	return nil
}
