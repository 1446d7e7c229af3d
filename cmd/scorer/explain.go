package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/scoring"
	"github.com/albapepper/scoracle-predict/internal/store"
)

// explanation is a participant's score recomputed from the current inputs,
// next to what is stored.
type explanation struct {
	participant *scoring.Participant
	season      int
	table       []scoring.PositionAward
	tableErr    error
	fixtures    []scoring.FixtureAward
	fixtureErr  error
}

func explain(ctx context.Context, cfg *config.Config, st store.Store, id string) (*explanation, error) {
	entries, err := st.GetStandings(ctx, cfg.Season)
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no standings for season %d", cfg.Season)
	}
	standings, err := scoring.NewStandings(entries)
	if err != nil {
		return nil, err
	}
	fixtures, err := st.GetFixtureResults(ctx, cfg.Season)
	if err != nil {
		return nil, fmt.Errorf("get fixtures: %w", err)
	}
	p, err := st.GetParticipant(ctx, scoring.ParticipantID(id))
	if err != nil {
		return nil, err
	}

	agg := refresh.OptionsFromConfig(cfg, st, logger).Aggregator
	exp := &explanation{participant: p, season: cfg.Season}
	exp.table, exp.tableErr = agg.Table.Breakdown(p.TablePrediction, standings)
	exp.fixtures, exp.fixtureErr = agg.Fixtures.Breakdown(p.FixturePredictions, scoring.Results(fixtures))
	return exp, nil
}

func (e *explanation) tablePoints() int {
	total := 0
	for _, a := range e.table {
		total += a.Points
	}
	return total
}

func (e *explanation) fixturePoints() int {
	total := 0
	for _, a := range e.fixtures {
		total += a.Points
	}
	return total
}

func (e *explanation) write(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	p := e.participant

	fmt.Fprintf(w, "Participant %s, season %d\n\n", p.ID, e.season)

	fmt.Fprintln(w, "RANK\tTEAM\tACTUAL\tPOINTS")
	if e.tableErr != nil {
		fmt.Fprintf(w, "table prediction rejected: %v\n", e.tableErr)
	}
	for _, a := range e.table {
		actual := "-"
		if a.Position > 0 {
			actual = fmt.Sprint(a.Position)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\n", a.Rank, a.TeamID, actual, a.Points)
	}

	fmt.Fprintln(w, "\nFIXTURE\tPREDICTED\tACTUAL\tPOINTS")
	if e.fixtureErr != nil {
		fmt.Fprintf(w, "fixture predictions rejected: %v\n", e.fixtureErr)
	}
	for _, a := range e.fixtures {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", a.FixtureID, a.Predicted, a.Actual, a.Points)
	}

	fmt.Fprintf(w, "\nRecomputed\ttable=%d\tfixtures=%d\ttotal=%d\n",
		e.tablePoints(), e.fixturePoints(), e.tablePoints()+e.fixturePoints())
	fmt.Fprintf(w, "Stored\ttable=%d\tfixtures=%d\ttotal=%d\n",
		p.TablePoints, p.FixturePoints, p.TotalPoints)
	return w.Flush()
}
