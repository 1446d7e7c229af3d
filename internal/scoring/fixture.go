package scoring

import (
	"fmt"
	"sort"
)

// ResultClass is the classified result of a match from the home side.
type ResultClass string

const (
	HomeWin ResultClass = "H"
	Draw    ResultClass = "D"
	AwayWin ResultClass = "A"
)

// ParseResultClass accepts H/D/A (any case). The empty string parses to "".
func ParseResultClass(s string) (ResultClass, error) {
	switch s {
	case "":
		return "", nil
	case "H", "h":
		return HomeWin, nil
	case "D", "d":
		return Draw, nil
	case "A", "a":
		return AwayWin, nil
	}
	return "", fmt.Errorf("unknown result class %q", s)
}

// Outcome is a predicted or actual match outcome: an exact scoreline, a
// result class, or both.
type Outcome struct {
	HomeGoals *int
	AwayGoals *int
	Result    ResultClass
}

// Scoreline builds an outcome from goals.
func Scoreline(home, away int) Outcome {
	return Outcome{HomeGoals: &home, AwayGoals: &away}
}

// ResultOnly builds an outcome carrying only a result class.
func ResultOnly(r ResultClass) Outcome {
	return Outcome{Result: r}
}

// HasScore reports whether both goal counts are known.
func (o Outcome) HasScore() bool {
	return o.HomeGoals != nil && o.AwayGoals != nil
}

// Class returns the result class, derived from the scoreline when present.
func (o Outcome) Class() ResultClass {
	if o.HasScore() {
		switch {
		case *o.HomeGoals > *o.AwayGoals:
			return HomeWin
		case *o.HomeGoals < *o.AwayGoals:
			return AwayWin
		default:
			return Draw
		}
	}
	return o.Result
}

func (o Outcome) String() string {
	if o.HasScore() {
		return fmt.Sprintf("%d-%d", *o.HomeGoals, *o.AwayGoals)
	}
	return string(o.Result)
}

// FixturePolicy holds the points awarded per fixture.
type FixturePolicy struct {
	ExactScore    int
	CorrectResult int
}

// DefaultFixturePolicy: 3 for an exact scoreline, 1 for the right result.
func DefaultFixturePolicy() FixturePolicy {
	return FixturePolicy{ExactScore: 3, CorrectResult: 1}
}

// FixtureScorer awards points for match predictions against finished results.
type FixtureScorer struct {
	Policy FixturePolicy
}

// Award scores one prediction against one actual outcome.
func (s FixtureScorer) Award(predicted, actual Outcome) int {
	if predicted.HasScore() && actual.HasScore() &&
		*predicted.HomeGoals == *actual.HomeGoals &&
		*predicted.AwayGoals == *actual.AwayGoals {
		return s.Policy.ExactScore
	}
	if c := predicted.Class(); c != "" && c == actual.Class() {
		return s.Policy.CorrectResult
	}
	return 0
}

// Score sums awards over fixtures present in both predictions and results.
// Unplayed or unpredicted fixtures contribute zero.
func (s FixtureScorer) Score(predictions, results map[FixtureID]Outcome) (int, error) {
	total := 0
	for id, predicted := range predictions {
		if err := checkOutcome(id, predicted); err != nil {
			return 0, err
		}
		actual, ok := results[id]
		if !ok {
			continue
		}
		total += s.Award(predicted, actual)
	}
	return total, nil
}

// FixtureAward is the contribution of one finished fixture.
type FixtureAward struct {
	FixtureID FixtureID
	Predicted Outcome
	Actual    Outcome
	Points    int
}

// Breakdown lists the awards for every scored fixture, ordered by ID.
func (s FixtureScorer) Breakdown(predictions, results map[FixtureID]Outcome) ([]FixtureAward, error) {
	var out []FixtureAward
	for id, predicted := range predictions {
		if err := checkOutcome(id, predicted); err != nil {
			return nil, err
		}
		actual, ok := results[id]
		if !ok {
			continue
		}
		out = append(out, FixtureAward{
			FixtureID: id,
			Predicted: predicted,
			Actual:    actual,
			Points:    s.Award(predicted, actual),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FixtureID < out[j].FixtureID })
	return out, nil
}

func checkOutcome(id FixtureID, o Outcome) error {
	if (o.HomeGoals == nil) != (o.AwayGoals == nil) {
		return malformed("fixture %d: partial scoreline", id)
	}
	if o.HasScore() && (*o.HomeGoals < 0 || *o.AwayGoals < 0) {
		return malformed("fixture %d: negative goals", id)
	}
	if o.Result != "" && o.Result != HomeWin && o.Result != Draw && o.Result != AwayWin {
		return malformed("fixture %d: unknown result %q", id, o.Result)
	}
	if o.Class() == "" {
		return malformed("fixture %d: no scoreline or result", id)
	}
	if o.HasScore() && o.Result != "" && o.Result != o.Class() {
		return malformed("fixture %d: result %s contradicts scoreline %s", id, o.Result, o.String())
	}
	return nil
}
