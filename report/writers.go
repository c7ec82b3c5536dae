package report

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/domino14/epdbench/engine"
	"github.com/domino14/epdbench/scoring"
)

var (
	detailsHeader = []string{"ID", "FEN", "EngineMove", "EPDMoves", "Points"}
	summaryHeader = []string{"Engine", "Id", "Description", "MTS", "Points", "Total", "Pct"}
	rankedHeader  = []string{"Engine", "TFile", "ID", "Description", "Points", "Total", "Pct"}
)

// Artifact names one of the per-run report files.
type Artifact string

const (
	ArtifactDetails  Artifact = "details"
	ArtifactSummary  Artifact = "summary"
	ArtifactStrength Artifact = "strength"
	ArtifactWeakness Artifact = "weakness"
)

// ArtifactPath is where a run of engineName writes artifact a.
func ArtifactPath(dir, engineName string, a Artifact) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", engine.SafeName(engineName), a))
}

// WriteDetails writes one row per scored position followed by the warning
// rows.
func WriteDetails(path string, card *scoring.Scorecard) error {
	nrows := len(card.Rows)
	return writeCSVFile(path, detailsHeader, nrows+len(card.Warnings), func(i int) []string {
		if i >= nrows {
			w := card.Warnings[i-nrows]
			return []string{w.Reason, w.FEN, "", "", ""}
		}
		r := card.Rows[i]
		return []string{r.ID, r.FEN, r.EngineMove, r.Ruling, strconv.Itoa(r.Points)}
	})
}

func WriteSummary(path string, rows []SuiteRow) error {
	return writeCSVFile(path, summaryHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Engine,
			r.SuiteID,
			r.Description,
			formatFloat(r.MoveTime),
			strconv.Itoa(r.Points),
			strconv.Itoa(r.Total),
			formatFloat(r.Pct),
		}
	})
}

// WriteRanked writes a strength or weakness table.
func WriteRanked(path string, rows []RankedRow) error {
	return writeCSVFile(path, rankedHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Engine,
			r.SuiteFile,
			r.SuiteID,
			r.Description,
			strconv.Itoa(r.Points),
			strconv.Itoa(r.Total),
			formatFloat(r.Pct),
		}
	})
}
