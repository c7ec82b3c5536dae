package scoring

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/epdbench/epd"
	"github.com/domino14/epdbench/worker"
)

const (
	fenA    = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	fenB    = "r1bqkbnr/pppppppp/2n5/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 0 1"
	fenC    = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
	fenLost = "8/8/8/8/8/8/8/K6k w - - 0 1"
)

var opening = epd.Ruling{{Move: "e2e4", Points: 10}, {Move: "d2d4", Points: 5}}

func suite() *epd.PositionSet {
	return epd.NewPositionSet([]epd.Record{
		{ID: "T1.1", FEN: fenA, Ruling: opening},
		{ID: "T1.2", FEN: fenB, Ruling: opening},
	})
}

func TestAggregateEndToEnd(t *testing.T) {
	is := is.New(t)
	results := worker.AnalysisResult{
		fenA:    "e2e4",
		fenB:    "g1f3",
		fenLost: "a1a2",
	}
	card := Aggregate(results, suite())

	is.Equal(card.TotalPoints, 10)
	is.Equal(card.Rows, []DetailRow{
		{ID: "T1.1", FEN: fenA, EngineMove: "e2e4", Ruling: "e2e4=10, d2d4=5", Points: 10},
		{ID: "T1.2", FEN: fenB, EngineMove: "g1f3", Ruling: "e2e4=10, d2d4=5", Points: 0},
	})
	is.Equal(card.Warnings, []WarningRow{{Reason: WarningFENNotFound, FEN: fenLost}})
	is.Equal(card.SuiteScores, map[string]int{"T1.1": 10, "T1.2": 0})
	is.Equal(card.SuiteOrder, []string{"T1.1", "T1.2"})
	is.Equal(card.Analyzed(), 2)
	is.Equal(card.Solved(), 1)
}

func TestAggregateNoMoveScoresNothing(t *testing.T) {
	is := is.New(t)
	card := Aggregate(worker.AnalysisResult{fenA: ""}, suite())
	is.Equal(card.TotalPoints, 0)
	is.Equal(len(card.Rows), 1)
	is.Equal(card.Rows[0].Points, 0)
	is.Equal(len(card.Warnings), 0)
}

func TestAggregateExactMatchOnly(t *testing.T) {
	is := is.New(t)
	// Promotion suffixes and case matter.
	set := epd.NewPositionSet([]epd.Record{
		{ID: "P.1", FEN: fenC, Ruling: epd.Ruling{{Move: "e1e2", Points: 7}}},
	})
	is.Equal(Aggregate(worker.AnalysisResult{fenC: "E1E2"}, set).TotalPoints, 0)
	is.Equal(Aggregate(worker.AnalysisResult{fenC: "e1e2"}, set).TotalPoints, 7)
}

func TestAggregateNaturalOrder(t *testing.T) {
	is := is.New(t)
	set := epd.NewPositionSet([]epd.Record{
		{ID: "Suite.10 Tail", FEN: fenA, Ruling: opening},
		{ID: "Suite.2 Head", FEN: fenB, Ruling: opening},
		{ID: "A9", FEN: fenC, Ruling: opening},
		{ID: "A10", FEN: fenLost, Ruling: opening},
	})
	results := worker.AnalysisResult{fenA: "e2e4", fenB: "d2d4", fenC: "", fenLost: "e2e4"}
	card := Aggregate(results, set)

	ids := make([]string, len(card.Rows))
	for i, r := range card.Rows {
		ids[i] = r.ID
	}
	is.Equal(ids, []string{"Suite.2 Head", "A9", "A10", "Suite.10 Tail"})
	is.Equal(card.SuiteOrder, []string{"Suite.2", "A9", "A10", "Suite.10"})
}

func TestAggregateDuplicateFENRulings(t *testing.T) {
	is := is.New(t)
	set := epd.NewPositionSet([]epd.Record{
		{ID: "D.1", FEN: fenA, Ruling: epd.Ruling{{Move: "e2e4", Points: 10}}},
		{ID: "D.2", FEN: fenA, Ruling: epd.Ruling{{Move: "c2c4", Points: 6}}},
	})
	card := Aggregate(worker.AnalysisResult{fenA: "c2c4"}, set)
	is.Equal(card.TotalPoints, 6)
	is.Equal(card.Rows[0].ID, "D.1")
	is.Equal(card.Rows[0].Ruling, "e2e4=10, c2c4=6")
}

func TestAggregateIsIdempotent(t *testing.T) {
	is := is.New(t)
	results := worker.AnalysisResult{fenA: "d2d4", fenB: "e2e4", fenLost: "", fenC: "e1d1"}
	set := suite()
	is.Equal(Aggregate(results, set), Aggregate(results, set))
}
