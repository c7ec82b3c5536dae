package report

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultLeaderboard is the leaderboard file used when none is configured.
const DefaultLeaderboard = "points.csv"

// LeaderboardEntry is the overall result of one run.
type LeaderboardEntry struct {
	Engine    string  `yaml:"engine"`
	SuiteFile string  `yaml:"suite_file"`
	MoveTime  float64 `yaml:"movetime"`
	Points    int     `yaml:"points"`
	Total     int     `yaml:"total"`
	Pct       float64 `yaml:"pct"`
}

// LeaderboardStore persists the whole leaderboard table. Load returns an
// empty table when nothing was saved yet.
type LeaderboardStore interface {
	Load(ctx context.Context) ([]LeaderboardEntry, error)
	Save(ctx context.Context, entries []LeaderboardEntry) error
	Close() error
}

// OpenLeaderboard picks the store for path from its extension: SQLite for
// .db, .sqlite and .sqlite3, CSV for anything else.
func OpenLeaderboard(path string) (LeaderboardStore, error) {
	if path == "" {
		path = DefaultLeaderboard
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLiteStore(path)
	}
	return &CSVStore{Path: path}, nil
}

// SortLeaderboard orders entries by suite file and move time ascending, then
// percentage descending. The sort is stable.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SuiteFile != b.SuiteFile {
			return a.SuiteFile < b.SuiteFile
		}
		if a.MoveTime != b.MoveTime {
			return a.MoveTime < b.MoveTime
		}
		return a.Pct > b.Pct
	})
}

// UpdateLeaderboard appends entry to the stored table, re-sorts it and saves
// it back. This is a plain read-modify-write: concurrent runs sharing a
// store can lose each other's entries.
func UpdateLeaderboard(ctx context.Context, store LeaderboardStore, entry LeaderboardEntry) ([]LeaderboardEntry, error) {
	entries, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	SortLeaderboard(entries)
	if err := store.Save(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}
