// Package report derives suite summaries, rankings and the cross-run
// leaderboard from a scorecard, and writes them out.
package report

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/domino14/epdbench/epd"
	"github.com/domino14/epdbench/scoring"
)

// PointsPerID is the maximum score of one distinct suite id.
const PointsPerID = 100

// Params identifies a run in the reports.
type Params struct {
	Engine    string
	SuiteFile string
	// MoveTime is the search budget per position, in seconds.
	MoveTime float64
}

// SuiteRow is one line of the suite summary.
type SuiteRow struct {
	Engine      string
	SuiteID     string
	Description string
	MoveTime    float64
	Points      int
	Total       int
	Pct         float64
}

// Summary is the per-suite breakdown of a run plus its leaderboard entry.
type Summary struct {
	Rows    []SuiteRow
	Overall LeaderboardEntry
}

// SuiteTotals is the maximum score of every suite: 100 points for each
// distinct id sharing the suite id.
func SuiteTotals(set *epd.PositionSet) map[string]int {
	totals := map[string]int{}
	for _, id := range set.DistinctIDs() {
		suite, _ := epd.SplitID(id)
		totals[suite] += PointsPerID
	}
	return totals
}

// SuiteDescriptions maps suite ids to their description. When ids of one
// suite disagree the last one wins.
func SuiteDescriptions(set *epd.PositionSet) map[string]string {
	desc := map[string]string{}
	for _, id := range set.DistinctIDs() {
		suite, d := epd.SplitID(id)
		desc[suite] = d
	}
	return desc
}

// Summarize builds the suite summary of a scored run. Only suites that
// scored positions get a row; the overall total still counts every suite of
// the set.
func Summarize(p Params, card *scoring.Scorecard, set *epd.PositionSet) *Summary {
	totals := SuiteTotals(set)
	desc := SuiteDescriptions(set)

	suites := lo.Keys(card.SuiteScores)
	sort.Slice(suites, func(i, j int) bool {
		return epd.CompareSuites(suites[i], suites[j]) < 0
	})

	s := &Summary{Rows: make([]SuiteRow, 0, len(suites))}
	for _, suite := range suites {
		pts := card.SuiteScores[suite]
		s.Rows = append(s.Rows, SuiteRow{
			Engine:      p.Engine,
			SuiteID:     suite,
			Description: desc[suite],
			MoveTime:    p.MoveTime,
			Points:      pts,
			Total:       totals[suite],
			Pct:         percent(pts, totals[suite]),
		})
	}

	grand := lo.Sum(lo.Values(totals))
	s.Overall = LeaderboardEntry{
		Engine:    p.Engine,
		SuiteFile: p.SuiteFile,
		MoveTime:  p.MoveTime,
		Points:    card.TotalPoints,
		Total:     grand,
		Pct:       percent(card.TotalPoints, grand),
	}
	return s
}

// percent is points/total as a percentage rounded to two decimals, 0 for an
// empty total.
func percent(points, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(points) / float64(total) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// RankedRow is a suite row as listed in the strength and weakness tables.
type RankedRow struct {
	Engine      string
	SuiteFile   string
	SuiteID     string
	Description string
	Points      int
	Total       int
	Pct         float64
}

func ranked(suiteFile string, rows []SuiteRow) []RankedRow {
	return lo.Map(rows, func(r SuiteRow, _ int) RankedRow {
		return RankedRow{
			Engine:      r.Engine,
			SuiteFile:   suiteFile,
			SuiteID:     r.SuiteID,
			Description: r.Description,
			Points:      r.Points,
			Total:       r.Total,
			Pct:         r.Pct,
		}
	})
}

// Strengths returns up to n suites with the highest percentage. Ties keep
// summary order.
func Strengths(suiteFile string, rows []SuiteRow, n int) []RankedRow {
	out := ranked(suiteFile, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pct > out[j].Pct })
	return out[:min(n, len(out))]
}

// Weaknesses returns up to n suites with the lowest percentage. Ties keep
// summary order.
func Weaknesses(suiteFile string, rows []SuiteRow, n int) []RankedRow {
	out := ranked(suiteFile, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pct < out[j].Pct })
	return out[:min(n, len(out))]
}
