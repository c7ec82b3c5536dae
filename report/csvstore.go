package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var leaderboardHeader = []string{"Engine", "TFile", "MTS", "Points", "Total", "Pct"}

// CSVStore keeps the leaderboard in a CSV file, rewritten as a whole on
// every save.
type CSVStore struct {
	Path string
}

func (s *CSVStore) Load(ctx context.Context) ([]LeaderboardEntry, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLeaderboard(f)
}

func readLeaderboard(r io.Reader) ([]LeaderboardEntry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Columns are found by name so tables written by other tools load too.
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, h := range leaderboardHeader {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("leaderboard is missing column %q", h)
		}
	}

	var entries []LeaderboardEntry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		e := LeaderboardEntry{
			Engine:    record[col["Engine"]],
			SuiteFile: record[col["TFile"]],
		}
		if e.MoveTime, err = strconv.ParseFloat(record[col["MTS"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: MTS: %w", line, err)
		}
		if e.Points, err = atoi(record[col["Points"]]); err != nil {
			return nil, fmt.Errorf("line %d: Points: %w", line, err)
		}
		if e.Total, err = atoi(record[col["Total"]]); err != nil {
			return nil, fmt.Errorf("line %d: Total: %w", line, err)
		}
		if e.Pct, err = strconv.ParseFloat(record[col["Pct"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: Pct: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// atoi also accepts integral floats such as "300.0".
func atoi(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

func (s *CSVStore) Save(ctx context.Context, entries []LeaderboardEntry) error {
	return writeCSVFile(s.Path, leaderboardHeader, len(entries), func(i int) []string {
		e := entries[i]
		return []string{
			e.Engine,
			e.SuiteFile,
			formatFloat(e.MoveTime),
			strconv.Itoa(e.Points),
			strconv.Itoa(e.Total),
			formatFloat(e.Pct),
		}
	})
}

func (s *CSVStore) Close() error {
	return nil
}

// writeCSVFile writes a header and n rows to path, replacing it.
func writeCSVFile(path string, header []string, n int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write(header)
	for i := 0; i < n; i++ {
		w.Write(row(i))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// formatFloat prints the shortest representation, keeping one decimal for
// integral values ("1.0"), like the tables written by earlier tools.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
