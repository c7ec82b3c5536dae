package epd

import (
	"fmt"
	"strings"
)

// MoveScore is one weighted candidate move of a ruling.
type MoveScore struct {
	Move   string
	Points int
}

// Ruling is the ordered list of weighted moves for a position.
type Ruling []MoveScore

// PointsFor returns the points of the first entry whose move is exactly
// equal to mv, or 0 if there is none. The empty move never matches.
func (r Ruling) PointsFor(mv string) int {
	if mv == "" {
		return 0
	}
	for _, ms := range r {
		if ms.Move == mv {
			return ms.Points
		}
	}
	return 0
}

// String renders the ruling as "e2e4=10, d2d4=5".
func (r Ruling) String() string {
	parts := make([]string, len(r))
	for i, ms := range r {
		parts[i] = fmt.Sprintf("%s=%d", ms.Move, ms.Points)
	}
	return strings.Join(parts, ", ")
}

// Record is one parsed suite line.
type Record struct {
	ID     string
	FEN    string
	Ruling Ruling
}

// Position is a unique board position to analyze. ID is the id of the first
// record that carried this FEN; rulings of later records with the same FEN
// are appended to Ruling in record order.
type Position struct {
	FEN    string
	ID     string
	Ruling Ruling
}

// SuiteID is the part of the position's id before the first whitespace.
func (p *Position) SuiteID() string {
	s, _ := SplitID(p.ID)
	return s
}

// PositionSet is the deduplicated collection of positions of a suite.
type PositionSet struct {
	positions []*Position
	byFEN     map[string]*Position
	ids       []string
	seenIDs   map[string]struct{}
	records   int
}

// NewPositionSet builds a set from records, in record order.
func NewPositionSet(records []Record) *PositionSet {
	s := &PositionSet{
		byFEN:   make(map[string]*Position),
		seenIDs: make(map[string]struct{}),
	}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add merges a record into the set.
func (s *PositionSet) Add(r Record) {
	s.records++
	if _, ok := s.seenIDs[r.ID]; !ok {
		s.seenIDs[r.ID] = struct{}{}
		s.ids = append(s.ids, r.ID)
	}
	if p, ok := s.byFEN[r.FEN]; ok {
		p.Ruling = append(p.Ruling, r.Ruling...)
		return
	}
	p := &Position{
		FEN:    r.FEN,
		ID:     r.ID,
		Ruling: append(Ruling(nil), r.Ruling...),
	}
	s.byFEN[r.FEN] = p
	s.positions = append(s.positions, p)
}

// Positions returns the unique positions in first-appearance order.
func (s *PositionSet) Positions() []*Position {
	return s.positions
}

// FENs returns the unique FENs in first-appearance order.
func (s *PositionSet) FENs() []string {
	fens := make([]string, len(s.positions))
	for i, p := range s.positions {
		fens[i] = p.FEN
	}
	return fens
}

// Lookup returns the position for fen, if any.
func (s *PositionSet) Lookup(fen string) (*Position, bool) {
	p, ok := s.byFEN[fen]
	return p, ok
}

// DistinctIDs returns every distinct id across all records, including
// records whose FEN duplicated an earlier one.
func (s *PositionSet) DistinctIDs() []string {
	return s.ids
}

// Len is the number of unique positions.
func (s *PositionSet) Len() int {
	return len(s.positions)
}

// Records is the number of records merged into the set.
func (s *PositionSet) Records() int {
	return s.records
}
