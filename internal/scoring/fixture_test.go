package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeClass(t *testing.T) {
	assert.Equal(t, HomeWin, Scoreline(2, 1).Class())
	assert.Equal(t, AwayWin, Scoreline(0, 3).Class())
	assert.Equal(t, Draw, Scoreline(1, 1).Class())
	assert.Equal(t, Draw, ResultOnly(Draw).Class())
	assert.Equal(t, ResultClass(""), Outcome{}.Class())
}

func TestFixtureAward(t *testing.T) {
	s := FixtureScorer{Policy: DefaultFixturePolicy()}

	assert.Equal(t, 3, s.Award(Scoreline(2, 1), Scoreline(2, 1)))
	assert.Equal(t, 1, s.Award(Scoreline(3, 0), Scoreline(2, 1)))
	assert.Equal(t, 0, s.Award(Scoreline(1, 1), Scoreline(2, 1)))
	assert.Equal(t, 1, s.Award(ResultOnly(AwayWin), Scoreline(0, 2)))
	assert.Equal(t, 1, s.Award(Scoreline(0, 0), ResultOnly(Draw)))
}

func TestFixtureScoreConfigurablePolicy(t *testing.T) {
	s := FixtureScorer{Policy: FixturePolicy{ExactScore: 5, CorrectResult: 2}}
	predictions := map[FixtureID]Outcome{1: Scoreline(1, 0), 2: Scoreline(2, 2), 3: Scoreline(0, 1)}
	results := map[FixtureID]Outcome{1: Scoreline(1, 0), 2: Scoreline(0, 0), 3: Scoreline(1, 0)}

	got, err := s.Score(predictions, results)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestFixtureScoreIgnoresUnplayedAndUnpredicted(t *testing.T) {
	s := FixtureScorer{Policy: DefaultFixturePolicy()}
	predictions := map[FixtureID]Outcome{1: Scoreline(1, 0), 2: Scoreline(3, 3)}
	results := map[FixtureID]Outcome{1: Scoreline(1, 0), 9: Scoreline(0, 0)}

	got, err := s.Score(predictions, results)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestFixtureScoreNeverDecreasesWhenResultArrives(t *testing.T) {
	s := FixtureScorer{Policy: DefaultFixturePolicy()}
	predictions := map[FixtureID]Outcome{1: Scoreline(1, 0), 2: Scoreline(2, 2)}
	results := map[FixtureID]Outcome{1: Scoreline(1, 0)}

	before, err := s.Score(predictions, results)
	require.NoError(t, err)

	for _, actual := range []Outcome{Scoreline(2, 2), Scoreline(0, 0), Scoreline(4, 1)} {
		next := map[FixtureID]Outcome{1: results[1], 2: actual}
		after, err := s.Score(predictions, next)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after, before)
	}
}

func TestFixtureScoreRejectsMalformedPrediction(t *testing.T) {
	s := FixtureScorer{Policy: DefaultFixturePolicy()}
	home := 2
	neg := -1

	cases := map[string]Outcome{
		"empty":          {},
		"partial":        {HomeGoals: &home},
		"negative goals": {HomeGoals: &neg, AwayGoals: &home},
		"contradiction":  {HomeGoals: &home, AwayGoals: &home, Result: HomeWin},
		"unknown result": {Result: ResultClass("X")},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Score(map[FixtureID]Outcome{1: o}, map[FixtureID]Outcome{})
			var scoringErr *ScoringError
			require.True(t, errors.As(err, &scoringErr), "got %v", err)
		})
	}
}

func TestFixtureBreakdownOrderedByID(t *testing.T) {
	s := FixtureScorer{Policy: DefaultFixturePolicy()}
	predictions := map[FixtureID]Outcome{3: Scoreline(1, 0), 1: Scoreline(0, 0), 2: Scoreline(1, 1)}
	results := map[FixtureID]Outcome{3: Scoreline(1, 0), 1: Scoreline(1, 1)}

	awards, err := s.Breakdown(predictions, results)
	require.NoError(t, err)
	require.Len(t, awards, 2)
	assert.Equal(t, FixtureID(1), awards[0].FixtureID)
	assert.Equal(t, 1, awards[0].Points)
	assert.Equal(t, FixtureID(3), awards[1].FixtureID)
	assert.Equal(t, 3, awards[1].Points)
}

func TestResultsSkipsPendingFixtures(t *testing.T) {
	done := Scoreline(2, 0)
	got := Results([]FixtureResult{
		{ID: 1, Outcome: &done},
		{ID: 2},
	})
	assert.Equal(t, map[FixtureID]Outcome{1: done}, got)
}

func TestParseResultClass(t *testing.T) {
	r, err := ParseResultClass("h")
	require.NoError(t, err)
	assert.Equal(t, HomeWin, r)

	_, err = ParseResultClass("X")
	assert.Error(t, err)
}
