package report

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/epdbench/epd"
	"github.com/domino14/epdbench/scoring"
	"github.com/domino14/epdbench/worker"
)

const (
	fenA = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	fenB = "r1bqkbnr/pppppppp/2n5/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 0 1"
	fenC = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
	fenD = "8/8/8/8/8/8/8/K6k w - - 0 1"
)

var opening = epd.Ruling{{Move: "e2e4", Points: 10}, {Move: "d2d4", Points: 5}}

func sampleSet() *epd.PositionSet {
	return epd.NewPositionSet([]epd.Record{
		{ID: "STS1 Undermining.001", FEN: fenA, Ruling: opening},
		{ID: "STS1 Undermining.002", FEN: fenB, Ruling: opening},
		{ID: "STS2 Open Files.001", FEN: fenC, Ruling: opening},
		{ID: "Misc", FEN: fenD, Ruling: opening},
	})
}

func sampleSummary() *Summary {
	set := sampleSet()
	card := scoring.Aggregate(worker.AnalysisResult{
		fenA: "e2e4",
		fenB: "d2d4",
		fenC: "",
		fenD: "e2e4",
	}, set)
	return Summarize(Params{Engine: "Fake 1", SuiteFile: "sts.epd", MoveTime: 0.5}, card, set)
}

func TestSuiteTotals(t *testing.T) {
	is := is.New(t)
	set := sampleSet()
	// A duplicate FEN under a new id still counts towards the total.
	set.Add(epd.Record{ID: "STS2 Open Files.002", FEN: fenC, Ruling: opening})
	set.Add(epd.Record{ID: "STS2 Open Files.002", FEN: fenC, Ruling: opening})

	is.Equal(SuiteTotals(set), map[string]int{"STS1": 200, "STS2": 200, "Misc": 100})
}

func TestSuiteDescriptions(t *testing.T) {
	is := is.New(t)
	set := sampleSet()
	set.Add(epd.Record{ID: "STS2 Open Files, revised.7", FEN: fenB, Ruling: opening})
	is.Equal(SuiteDescriptions(set), map[string]string{
		"STS1": "Undermining",
		"STS2": "Open Files, revised",
		"Misc": "",
	})
}

func TestSummarize(t *testing.T) {
	is := is.New(t)
	s := sampleSummary()

	is.Equal(s.Rows, []SuiteRow{
		{Engine: "Fake 1", SuiteID: "Misc", Description: "", MoveTime: 0.5, Points: 10, Total: 100, Pct: 10},
		{Engine: "Fake 1", SuiteID: "STS1", Description: "Undermining", MoveTime: 0.5, Points: 15, Total: 200, Pct: 7.5},
		{Engine: "Fake 1", SuiteID: "STS2", Description: "Open Files", MoveTime: 0.5, Points: 0, Total: 100, Pct: 0},
	})
	is.Equal(s.Overall, LeaderboardEntry{
		Engine: "Fake 1", SuiteFile: "sts.epd", MoveTime: 0.5, Points: 25, Total: 400, Pct: 6.25,
	})
}

func TestSummarizeOnlyScoredSuites(t *testing.T) {
	is := is.New(t)
	set := sampleSet()
	card := scoring.Aggregate(worker.AnalysisResult{fenA: "e2e4"}, set)
	s := Summarize(Params{Engine: "e"}, card, set)

	is.Equal(len(s.Rows), 1)
	is.Equal(s.Rows[0].SuiteID, "STS1")
	// Unanalyzed suites still count in the overall total.
	is.Equal(s.Overall.Total, 400)
	is.Equal(s.Overall.Pct, 2.5)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	is := is.New(t)
	is.Equal(sampleSummary(), sampleSummary())
}

func TestPercent(t *testing.T) {
	is := is.New(t)
	is.Equal(percent(1, 3), 33.33)
	is.Equal(percent(2, 3), 66.67)
	is.Equal(percent(100, 100), 100.0)
	is.Equal(percent(5, 0), 0.0)
	is.Equal(percent(0, 0), 0.0)
}

func TestStrengthsAndWeaknesses(t *testing.T) {
	is := is.New(t)
	rows := []SuiteRow{
		{SuiteID: "a", Pct: 50},
		{SuiteID: "b", Pct: 20},
		{SuiteID: "c", Pct: 50},
		{SuiteID: "d", Pct: 70},
		{SuiteID: "e", Pct: 20},
		{SuiteID: "f", Pct: 10},
	}
	ids := func(rr []RankedRow) []string {
		out := make([]string, len(rr))
		for i, r := range rr {
			out[i] = r.SuiteID
		}
		return out
	}
	is.Equal(ids(Strengths("x.epd", rows, 5)), []string{"d", "a", "c", "b", "e"})
	is.Equal(ids(Weaknesses("x.epd", rows, 5)), []string{"f", "b", "e", "a", "c"})
	is.Equal(ids(Strengths("x.epd", rows[:2], 5)), []string{"a", "b"})
	is.Equal(Strengths("x.epd", rows, 1)[0].SuiteFile, "x.epd")
	is.Equal(len(Weaknesses("x.epd", nil, 5)), 0)
}
