package report

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
)

const (
	histogramBins  = 10
	histogramWidth = 40
)

// PrintHistogram draws the distribution of suite percentages.
func PrintHistogram(w io.Writer, rows []SuiteRow) error {
	if len(rows) == 0 {
		return nil
	}
	pcts := lo.Map(rows, func(r SuiteRow, _ int) float64 { return r.Pct })
	h := histogram.Hist(histogramBins, pcts)
	return histogram.Fprint(w, h, histogram.Linear(histogramWidth))
}
