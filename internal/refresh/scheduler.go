package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 30 * time.Minute

// EventScoresRefreshed is published after every cycle.
const EventScoresRefreshed = "scores.refreshed"

// Options configures a Scheduler. Recorder, Publisher and OnComplete are
// optional.
type Options struct {
	Season       int
	Interval     time.Duration
	Clock        Clock
	Standings    StandingsProvider
	Results      ResultsProvider
	Participants ParticipantStore
	Aggregator   *scoring.Aggregator
	Recorder     RunRecorder
	Publisher    Publisher
	OnComplete   func(Report)
	Logger       *slog.Logger
}

// Scheduler runs refresh cycles one at a time. The sem channel has capacity
// one and is held for the whole cycle, so cycles never overlap: ticks that
// find it taken are skipped and manual triggers wait for it.
type Scheduler struct {
	opts   Options
	logger *slog.Logger
	sem    chan struct{}

	stopOnce sync.Once
	stop     chan struct{}

	mu      sync.Mutex
	state   State
	cycles  int
	skipped int
	last    *Report
}

// New creates a Scheduler in the Idle state.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		opts:   opts,
		logger: logger,
		sem:    make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// Run performs one cycle immediately and then one per interval. It blocks
// until ctx is cancelled or Stop is called. Intended to be called with `go`.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Refresh scheduler started",
		"season", s.opts.Season, "interval", s.opts.Interval)

	ticker := s.opts.Clock.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tick(ctx, TriggerStartup)

	for {
		select {
		case <-ticker.C():
			if s.stopped() {
				return
			}
			s.tick(ctx, TriggerTick)
		case <-s.stop:
			s.logger.Info("Refresh scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Refresh scheduler stopped (context cancelled)")
			return
		}
	}
}

// Stop prevents further ticks from starting a cycle. A cycle already in
// flight runs to completion.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Trigger runs a cycle on demand and reports how many participants were
// rescored. If a cycle is in flight it waits for it to finish first.
func (s *Scheduler) Trigger(ctx context.Context) TriggerResult {
	if err := ctx.Err(); err != nil {
		return TriggerResult{
			Error:   fmt.Sprintf("refresh not started: %v", err),
			Aborted: true,
		}
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return TriggerResult{
			Error:   fmt.Sprintf("waiting for running refresh: %v", ctx.Err()),
			Aborted: true,
		}
	}
	report := s.cycle(ctx, TriggerManual)
	return report.Result()
}

// Wait blocks until no cycle is in flight. Callers stop new work first
// (Stop, cancelled trigger contexts) and then Wait before closing the store.
func (s *Scheduler) Wait() {
	s.sem <- struct{}{}
	<-s.sem
}

func (s *Scheduler) tick(ctx context.Context, trigger Trigger) {
	select {
	case s.sem <- struct{}{}:
	default:
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Info("Refresh already in progress, skipping tick", "trigger", trigger)
		return
	}
	s.cycle(ctx, trigger)
}

// cycle must be called holding sem; it releases it.
func (s *Scheduler) cycle(ctx context.Context, trigger Trigger) Report {
	defer func() { <-s.sem }()

	// In-flight cycles are never cancelled.
	ctx = context.WithoutCancel(ctx)

	s.setState(Refreshing)
	report := s.refreshCycle(ctx, trigger)
	s.finish(ctx, report)
	return report
}

func (s *Scheduler) refreshCycle(ctx context.Context, trigger Trigger) Report {
	start := s.opts.Clock.Now()
	report := Report{Trigger: trigger, Season: s.opts.Season, StartedAt: start}

	s.logger.Info("Refresh cycle started", "trigger", trigger, "season", s.opts.Season)

	standings, results, participants, err := s.fetch(ctx)
	if err != nil {
		report.Err = err
		report.Duration = s.opts.Clock.Now().Sub(start)
		s.logger.Error("Refresh cycle aborted, scores left unchanged",
			"trigger", trigger, "error", err)
		return report
	}

	report.Teams = len(standings)
	report.Finished = len(results)
	report.Recompute = s.opts.Aggregator.RecomputeAll(ctx, participants, standings, results)
	report.Duration = s.opts.Clock.Now().Sub(start)
	return report
}

// fetch loads every input before anything is written, so a failure never
// applies a partial snapshot.
func (s *Scheduler) fetch(ctx context.Context) (scoring.Standings, map[scoring.FixtureID]scoring.Outcome, []scoring.Participant, error) {
	entries, err := s.opts.Standings.GetStandings(ctx, s.opts.Season)
	if err != nil {
		return nil, nil, nil, &FetchError{Source: "standings", Err: err}
	}
	if len(entries) == 0 {
		return nil, nil, nil, &FetchError{Source: "standings", Err: errors.New("empty snapshot")}
	}
	standings, err := scoring.NewStandings(entries)
	if err != nil {
		return nil, nil, nil, &FetchError{Source: "standings", Err: err}
	}

	fixtures, err := s.opts.Results.GetFixtureResults(ctx, s.opts.Season)
	if err != nil {
		return nil, nil, nil, &FetchError{Source: "fixture results", Err: err}
	}

	participants, err := s.opts.Participants.ListParticipants(ctx)
	if err != nil {
		return nil, nil, nil, &FetchError{Source: "participants", Err: err}
	}

	return standings, scoring.Results(fixtures), participants, nil
}

func (s *Scheduler) finish(ctx context.Context, report Report) {
	s.mu.Lock()
	s.state = Idle
	s.cycles++
	s.last = &report
	s.mu.Unlock()

	s.logger.Info("Refresh cycle complete", "summary", report.Summary())

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordRun(ctx, report.Record()); err != nil {
			s.logger.Warn("Failed to record refresh run", "error", err)
		}
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.Publish(ctx, EventScoresRefreshed, report.Record()); err != nil {
			s.logger.Warn("Failed to publish refresh event", "error", err)
		}
	}
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(report)
	}
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Scheduler) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State        string     `json:"state"`
	Season       int        `json:"season"`
	Interval     string     `json:"interval"`
	Cycles       int        `json:"cycles"`
	SkippedTicks int        `json:"skipped_ticks"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastSuccess  *bool      `json:"last_success,omitempty"`
	LastSummary  string     `json:"last_summary,omitempty"`
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the current state and the outcome of the last cycle.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:        s.state.String(),
		Season:       s.opts.Season,
		Interval:     s.opts.Interval.String(),
		Cycles:       s.cycles,
		SkippedTicks: s.skipped,
	}
	if s.last != nil {
		at := s.last.StartedAt
		ok := s.last.Success()
		st.LastRunAt = &at
		st.LastSuccess = &ok
		st.LastSummary = s.last.Summary()
	}
	return st
}
