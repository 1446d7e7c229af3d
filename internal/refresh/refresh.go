// Package refresh keeps participant scores current. A Scheduler fetches the
// latest standings and fixture results on a fixed interval (and on demand)
// and recomputes every participant's scores from them.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// --------------------------------------------------------------------------
// External collaborators
// --------------------------------------------------------------------------

// StandingsProvider returns the current table for a season.
type StandingsProvider interface {
	GetStandings(ctx context.Context, season int) ([]scoring.StandingEntry, error)
}

// ResultsProvider returns the season's fixtures. Only fixtures with an
// outcome take part in scoring.
type ResultsProvider interface {
	GetFixtureResults(ctx context.Context, season int) ([]scoring.FixtureResult, error)
}

// ParticipantStore lists participants and persists their scores.
type ParticipantStore interface {
	ListParticipants(ctx context.Context) ([]scoring.Participant, error)
	scoring.ScoreWriter
}

// RunRecorder keeps a history of completed cycles.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// Publisher announces completed cycles to other services.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// State is the scheduler state.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerTick    Trigger = "tick"
	TriggerManual  Trigger = "manual"
)

// FetchError reports that an input could not be loaded. The cycle is aborted
// before any score is written.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Report describes one refresh cycle.
type Report struct {
	Trigger   Trigger
	Season    int
	StartedAt time.Time
	Duration  time.Duration
	Teams     int
	Finished  int // fixtures with a final result
	Recompute scoring.RecomputeResult
	Err       error // set when the cycle aborted
}

// Success is true when the cycle ran and every participant was updated.
func (r *Report) Success() bool {
	return r.Err == nil && r.Recompute.Failed() == 0
}

// Summary returns a human-readable summary.
func (r *Report) Summary() string {
	if r.Err != nil {
		return fmt.Sprintf("trigger=%s season=%d status=ABORTED error=%q dur=%s",
			r.Trigger, r.Season, r.Err, r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("trigger=%s season=%d teams=%d finished_fixtures=%d %s",
		r.Trigger, r.Season, r.Teams, r.Finished, r.Recompute.Summary())
}

// TriggerResult is returned to on-demand callers.
type TriggerResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
	Aborted bool   `json:"-"` // no cycle ran to completion, nothing was written
}

// Result converts the report for an on-demand caller.
func (r *Report) Result() TriggerResult {
	res := TriggerResult{Success: r.Success(), Count: r.Recompute.Updated, Aborted: r.Err != nil}
	switch {
	case r.Err != nil:
		res.Error = r.Err.Error()
	case r.Recompute.Failed() > 0:
		res.Error = fmt.Sprintf("%d of %d participants not updated: %s",
			r.Recompute.Failed(), r.Recompute.Participants, r.Recompute.Errors[0])
	}
	return res
}

// RunRecord is the persisted form of a Report.
type RunRecord struct {
	Trigger      string
	Season       int
	StartedAt    time.Time
	Duration     time.Duration
	Participants int
	Updated      int
	Failed       int
	Error        string
}

// Record converts the report for a RunRecorder.
func (r *Report) Record() RunRecord {
	rec := RunRecord{
		Trigger:      string(r.Trigger),
		Season:       r.Season,
		StartedAt:    r.StartedAt,
		Duration:     r.Duration,
		Participants: r.Recompute.Participants,
		Updated:      r.Recompute.Updated,
		Failed:       r.Recompute.Failed(),
	}
	if res := r.Result(); res.Error != "" {
		rec.Error = res.Error
	}
	return rec
}
