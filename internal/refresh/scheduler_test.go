package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 8, 16, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = &manualTicker{ch: make(chan time.Time)}
	return c.ticker
}

// tick blocks until the scheduler loop receives it.
func (c *manualClock) tick(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.ticker != nil
	}, time.Second, time.Millisecond)
	select {
	case c.ticker.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not receive tick")
	}
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

type fakeSource struct {
	mu        sync.Mutex
	standings []scoring.StandingEntry
	fixtures  []scoring.FixtureResult
	err       error
	calls     int
	gate      chan struct{} // when set, GetStandings blocks until closed
	entered   chan struct{}
	active    int
	maxActive int
}

func (f *fakeSource) GetStandings(ctx context.Context, season int) ([]scoring.StandingEntry, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	gate, entered := f.gate, f.entered
	standings, err := f.standings, f.err
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return standings, err
}

func (f *fakeSource) GetFixtureResults(ctx context.Context, season int) ([]scoring.FixtureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixtures, nil
}

type fakeStore struct {
	mu           sync.Mutex
	participants []scoring.Participant
	scores       map[scoring.ParticipantID]scoring.Scores
	writes       int
}

func (s *fakeStore) ListParticipants(context.Context) ([]scoring.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scoring.Participant(nil), s.participants...), nil
}

func (s *fakeStore) UpdateScores(_ context.Context, id scoring.ParticipantID, table, fixture, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.scores[id] = scoring.Scores{ParticipantID: id, TablePoints: table, FixturePoints: fixture, TotalPoints: total}
	return nil
}

func (s *fakeStore) snapshot() map[scoring.ParticipantID]scoring.Scores {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[scoring.ParticipantID]scoring.Scores, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

type recorder struct {
	mu   sync.Mutex
	runs []RunRecord
}

func (r *recorder) RecordRun(_ context.Context, run RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

type publisher struct {
	mu     sync.Mutex
	events []string
}

func (p *publisher) Publish(_ context.Context, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return errors.New("nats: no servers available")
}

type harness struct {
	clock     *manualClock
	source    *fakeSource
	store     *fakeStore
	recorder  *recorder
	publisher *publisher
	sched     *Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	done := scoring.Scoreline(2, 0)
	f := &harness{
		clock: newManualClock(),
		source: &fakeSource{
			standings: []scoring.StandingEntry{
				{TeamID: 1, Season: 2025, Position: 1},
				{TeamID: 2, Season: 2025, Position: 2},
				{TeamID: 3, Season: 2025, Position: 3},
			},
			fixtures: []scoring.FixtureResult{
				{ID: 10, Season: 2025, HomeTeamID: 1, AwayTeamID: 2, Outcome: &done},
				{ID: 11, Season: 2025, HomeTeamID: 2, AwayTeamID: 3},
			},
		},
		store: &fakeStore{
			participants: []scoring.Participant{
				{ID: "p1", TablePrediction: []scoring.TeamID{1, 2, 3},
					FixturePredictions: map[scoring.FixtureID]scoring.Outcome{10: scoring.Scoreline(2, 0), 11: scoring.Scoreline(1, 1)}},
				{ID: "p2", TablePrediction: []scoring.TeamID{3, 2, 1},
					FixturePredictions: map[scoring.FixtureID]scoring.Outcome{10: scoring.ResultOnly(scoring.HomeWin)}},
				{ID: "bad", TablePrediction: []scoring.TeamID{1, 2}},
			},
			scores: map[scoring.ParticipantID]scoring.Scores{
				"bad": {ParticipantID: "bad", TablePoints: 5, FixturePoints: 5, TotalPoints: 10},
			},
		},
		recorder:  &recorder{},
		publisher: &publisher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.sched = New(Options{
		Season:       2025,
		Interval:     time.Minute,
		Clock:        f.clock,
		Standings:    f.source,
		Results:      f.source,
		Participants: f.store,
		Aggregator: &scoring.Aggregator{
			Table:    scoring.NewTableScorer(20, 0),
			Fixtures: scoring.FixtureScorer{Policy: scoring.DefaultFixturePolicy()},
			Store:    f.store,
			Workers:  2,
			Logger:   logger,
		},
		Recorder:  f.recorder,
		Publisher: f.publisher,
		Logger:    logger,
	})
	return f
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTriggerRecomputesAndReportsCount(t *testing.T) {
	f := newHarness(t)

	res := f.sched.Trigger(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Count)
	assert.Contains(t, res.Error, "bad")
	assert.False(t, res.Aborted)

	scores := f.store.snapshot()
	assert.Equal(t, scoring.Scores{ParticipantID: "p1", TablePoints: 60, FixturePoints: 3, TotalPoints: 63}, scores["p1"])
	assert.Equal(t, scoring.Scores{ParticipantID: "p2", TablePoints: 56, FixturePoints: 1, TotalPoints: 57}, scores["p2"])
	assert.Equal(t, 10, scores["bad"].TotalPoints, "malformed participant keeps prior scores")

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, "manual", f.recorder.runs[0].Trigger)
	assert.Equal(t, 1, f.recorder.runs[0].Failed)
	assert.Equal(t, []string{EventScoresRefreshed}, f.publisher.events)
	assert.Equal(t, Idle, f.sched.State())
}

func TestTriggerSucceedsWhenEveryParticipantScores(t *testing.T) {
	f := newHarness(t)
	f.store.participants = f.store.participants[:2]

	res := f.sched.Trigger(context.Background())

	assert.Equal(t, TriggerResult{Success: true, Count: 2}, res)
}

func TestFetchFailureLeavesScoresUntouched(t *testing.T) {
	f := newHarness(t)
	f.source.err = errors.New("connection refused")

	res := f.sched.Trigger(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Count)
	assert.Contains(t, res.Error, "fetch standings")
	assert.True(t, res.Aborted)
	assert.Equal(t, 0, f.store.writes)
	assert.Equal(t, Idle, f.sched.State())

	st := f.sched.Status()
	require.NotNil(t, st.LastSuccess)
	assert.False(t, *st.LastSuccess)
}

func TestInvalidSnapshotIsAFetchError(t *testing.T) {
	f := newHarness(t)
	f.source.standings = []scoring.StandingEntry{{TeamID: 1, Position: 1}, {TeamID: 2, Position: 1}}

	res := f.sched.Trigger(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, 0, f.store.writes)

	f.source.standings = nil
	res = f.sched.Trigger(context.Background())
	assert.Contains(t, res.Error, "empty snapshot")
	assert.Equal(t, 0, f.store.writes)
}

func TestRefreshTwiceIsIdempotent(t *testing.T) {
	f := newHarness(t)

	f.sched.Trigger(context.Background())
	first := f.store.snapshot()
	f.sched.Trigger(context.Background())

	assert.Equal(t, first, f.store.snapshot())
}

func TestRunCyclesImmediatelyAndOnEveryTick(t *testing.T) {
	f := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.sched.Status().Cycles == 1 }, time.Second, time.Millisecond)

	f.clock.tick(t)
	require.Eventually(t, func() bool { return f.sched.Status().Cycles == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTickDuringCycleIsSkipped(t *testing.T) {
	f := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.sched.Run(ctx)
	require.Eventually(t, func() bool { return f.sched.Status().Cycles == 1 }, time.Second, time.Millisecond)

	gate, entered := make(chan struct{}), make(chan struct{})
	f.source.mu.Lock()
	f.source.gate, f.source.entered = gate, entered
	f.source.mu.Unlock()

	triggered := make(chan TriggerResult)
	go func() { triggered <- f.sched.Trigger(context.Background()) }()
	<-entered
	assert.Equal(t, Refreshing, f.sched.State())

	f.source.mu.Lock()
	f.source.gate, f.source.entered = nil, nil
	f.source.mu.Unlock()

	f.clock.tick(t)
	require.Eventually(t, func() bool { return f.sched.Status().SkippedTicks == 1 }, time.Second, time.Millisecond)

	close(gate)
	res := <-triggered
	assert.Equal(t, 2, res.Count)

	st := f.sched.Status()
	assert.Equal(t, 2, st.Cycles)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, 1, f.source.maxActive)
}

func TestTriggerWaitsForRunningCycle(t *testing.T) {
	f := newHarness(t)
	gate, entered := make(chan struct{}), make(chan struct{})
	f.source.gate, f.source.entered = gate, entered

	first := make(chan TriggerResult)
	go func() { first <- f.sched.Trigger(context.Background()) }()
	<-entered

	f.source.mu.Lock()
	f.source.gate, f.source.entered = nil, nil
	f.source.mu.Unlock()

	second := make(chan TriggerResult)
	go func() { second <- f.sched.Trigger(context.Background()) }()

	select {
	case <-second:
		t.Fatal("second trigger ran while first was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	<-first
	<-second
	assert.Equal(t, 1, f.source.maxActive)
	assert.Equal(t, 2, f.sched.Status().Cycles)
}

func TestTriggerGivesUpWhenContextEnds(t *testing.T) {
	f := newHarness(t)
	gate, entered := make(chan struct{}), make(chan struct{})
	f.source.gate, f.source.entered = gate, entered
	go f.sched.Trigger(context.Background())
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := f.sched.Trigger(ctx)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "waiting for running refresh")
	assert.True(t, res.Aborted)
	close(gate)
}

func TestStopPreventsNextTick(t *testing.T) {
	f := newHarness(t)
	done := make(chan struct{})
	go func() {
		f.sched.Run(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return f.sched.Status().Cycles == 1 }, time.Second, time.Millisecond)

	f.sched.Stop()
	f.sched.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, 1, f.sched.Status().Cycles)
}

func TestOnCompleteReceivesReport(t *testing.T) {
	f := newHarness(t)
	var got []Report
	f.sched.opts.OnComplete = func(r Report) { got = append(got, r) }

	f.sched.Trigger(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Teams)
	assert.Equal(t, 1, got[0].Finished)
	assert.Contains(t, got[0].Summary(), "updated=2")
}

func TestTriggerWithCancelledContextNeverRuns(t *testing.T) {
	f := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		res := f.sched.Trigger(ctx)
		require.True(t, res.Aborted)
		require.False(t, res.Success)
		require.Contains(t, res.Error, "refresh not started")
	}
	assert.Equal(t, 0, f.source.calls)
	assert.Equal(t, 0, f.sched.Status().Cycles)
	assert.Empty(t, f.recorder.runs)
}

func TestRunFinishesInFlightCycleAfterCancel(t *testing.T) {
	f := newHarness(t)
	gate, entered := make(chan struct{}), make(chan struct{})
	f.source.gate, f.source.entered = gate, entered

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx)
		close(done)
	}()
	<-entered
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while the startup cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the cycle completed")
	}
	assert.Equal(t, 2, f.store.writes)
	assert.Equal(t, 1, f.sched.Status().Cycles)
}

func TestWaitBlocksUntilCycleCompletes(t *testing.T) {
	f := newHarness(t)
	gate, entered := make(chan struct{}), make(chan struct{})
	f.source.gate, f.source.entered = gate, entered

	go f.sched.Trigger(context.Background())
	<-entered

	waited := make(chan struct{})
	go func() {
		f.sched.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the cycle completed")
	}
	assert.Equal(t, Idle, f.sched.State())
	assert.Equal(t, 2, f.store.writes)

	// Idle scheduler: Wait returns at once.
	f.sched.Wait()
}
