package scoring

// DefaultPointsPerPosition is the per-position maximum used for a 20-team
// league: a perfect ordering scores 400.
const DefaultPointsPerPosition = 20

// TableScorer awards points for closeness between a predicted ordering and
// the current standings.
type TableScorer struct {
	// MaxPerPosition is K: a team placed at its real position earns K, and
	// every place of displacement costs one point down to zero.
	MaxPerPosition int

	// Teams is the expected prediction length. Zero means the snapshot size.
	Teams int
}

// NewTableScorer returns a scorer with K = DefaultPointsPerPosition when k is
// not positive.
func NewTableScorer(k, teams int) TableScorer {
	if k <= 0 {
		k = DefaultPointsPerPosition
	}
	return TableScorer{MaxPerPosition: k, Teams: teams}
}

// MaxScore is the score of a fully correct ordering of n teams.
func (s TableScorer) MaxScore(n int) int {
	return s.MaxPerPosition * n
}

// Score sums max(0, K - |rank - position|) over every predicted rank. Teams
// missing from the snapshot contribute nothing.
func (s TableScorer) Score(prediction []TeamID, standings Standings) (int, error) {
	if err := s.validate(prediction, standings); err != nil {
		return 0, err
	}

	total := 0
	for i, team := range prediction {
		total += s.award(i+1, team, standings)
	}
	return total, nil
}

// PositionAward is the contribution of one predicted rank.
type PositionAward struct {
	Rank     int
	TeamID   TeamID
	Position int // 0 when the team is not in the snapshot
	Points   int
}

// Breakdown returns the per-rank awards that Score sums.
func (s TableScorer) Breakdown(prediction []TeamID, standings Standings) ([]PositionAward, error) {
	if err := s.validate(prediction, standings); err != nil {
		return nil, err
	}
	out := make([]PositionAward, len(prediction))
	for i, team := range prediction {
		out[i] = PositionAward{
			Rank:     i + 1,
			TeamID:   team,
			Position: standings[team],
			Points:   s.award(i+1, team, standings),
		}
	}
	return out, nil
}

func (s TableScorer) award(rank int, team TeamID, standings Standings) int {
	pos, ok := standings[team]
	if !ok {
		return 0
	}
	diff := rank - pos
	if diff < 0 {
		diff = -diff
	}
	return max(0, s.MaxPerPosition-diff)
}

func (s TableScorer) validate(prediction []TeamID, standings Standings) error {
	want := s.Teams
	if want == 0 {
		want = len(standings)
	}
	if len(prediction) == 0 {
		return malformed("empty table prediction")
	}
	if len(prediction) != want {
		return malformed("table prediction has %d teams, want %d", len(prediction), want)
	}
	seen := make(map[TeamID]struct{}, len(prediction))
	for i, team := range prediction {
		if team == 0 {
			return malformed("missing team at rank %d", i+1)
		}
		if _, dup := seen[team]; dup {
			return malformed("team %d predicted more than once", team)
		}
		seen[team] = struct{}{}
	}
	return nil
}
