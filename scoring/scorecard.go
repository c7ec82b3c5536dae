// Package scoring turns the moves an engine chose into points using the
// suite's rulings.
package scoring

import (
	"sort"

	"github.com/samber/lo"

	"github.com/domino14/epdbench/epd"
	"github.com/domino14/epdbench/worker"
)

// WarningFENNotFound flags a result for a position the suite does not know.
const WarningFENNotFound = "WARNING: FEN not found"

// DetailRow is the outcome of one analyzed position.
type DetailRow struct {
	ID         string
	FEN        string
	EngineMove string
	// Ruling is the rendered move/points table of the position.
	Ruling string
	Points int
}

type WarningRow struct {
	Reason string
	FEN    string
}

// Scorecard is everything the reports need about one run.
type Scorecard struct {
	Rows        []DetailRow
	Warnings    []WarningRow
	TotalPoints int
	// SuiteScores sums the points of each suite id.
	SuiteScores map[string]int
	// SuiteOrder lists suite ids in the order they first appear in Rows.
	SuiteOrder []string
}

// Aggregate scores results against the suite. A move earns the points of the
// ruling entry it equals exactly; any other move, including no move, earns
// nothing. Results for positions missing from the suite earn nothing and
// produce a warning row instead of a detail row.
func Aggregate(results worker.AnalysisResult, set *epd.PositionSet) *Scorecard {
	card := &Scorecard{SuiteScores: map[string]int{}}

	fens := lo.Keys(results)
	sort.Strings(fens)
	for _, fen := range fens {
		mv := results[fen]
		pos, ok := set.Lookup(fen)
		if !ok {
			card.Warnings = append(card.Warnings, WarningRow{Reason: WarningFENNotFound, FEN: fen})
			continue
		}
		pts := pos.Ruling.PointsFor(mv)
		card.TotalPoints += pts
		card.SuiteScores[pos.SuiteID()] += pts
		card.Rows = append(card.Rows, DetailRow{
			ID:         pos.ID,
			FEN:        fen,
			EngineMove: mv,
			Ruling:     pos.Ruling.String(),
			Points:     pts,
		})
	}

	sort.SliceStable(card.Rows, func(i, j int) bool {
		if c := epd.CompareNatural(card.Rows[i].ID, card.Rows[j].ID); c != 0 {
			return c < 0
		}
		return card.Rows[i].FEN < card.Rows[j].FEN
	})
	card.SuiteOrder = lo.Uniq(lo.Map(card.Rows, func(r DetailRow, _ int) string {
		suite, _ := epd.SplitID(r.ID)
		return suite
	}))
	return card
}

// Analyzed is the number of positions that earned a detail row.
func (c *Scorecard) Analyzed() int {
	return len(c.Rows)
}

// Solved counts positions that earned any points.
func (c *Scorecard) Solved() int {
	return lo.CountBy(c.Rows, func(r DetailRow) bool { return r.Points > 0 })
}
