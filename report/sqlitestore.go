package report

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const leaderboardSchema = `CREATE TABLE IF NOT EXISTS leaderboard (
	engine TEXT NOT NULL,
	suite_file TEXT NOT NULL,
	movetime REAL NOT NULL,
	points INTEGER NOT NULL,
	total INTEGER NOT NULL,
	pct REAL NOT NULL
)`

// SQLiteStore keeps the leaderboard in a SQLite table. Save replaces the
// table contents in one transaction; rowids preserve the saved order.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(leaderboardSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating leaderboard table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT engine, suite_file, movetime, points, total, pct FROM leaderboard ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Engine, &e.SuiteFile, &e.MoveTime, &e.Points, &e.Total, &e.Pct); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, entries []LeaderboardEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leaderboard (engine, suite_file, movetime, points, total, pct) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Engine, e.SuiteFile, e.MoveTime, e.Points, e.Total, e.Pct); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
