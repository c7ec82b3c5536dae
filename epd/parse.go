// Package epd loads EPD test suites: positions in FEN plus opcodes carrying
// an identifier and a weighted-move ruling (c8 points, c9 moves).
package epd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	OpID        = "id"
	OpPoints    = "c8"
	OpMoves     = "c9"
	OpHalfmoves = "hmvc"
	OpFullmoves = "fmvn"

	maxLineLength = 1 << 20
)

var (
	// ErrNoRecords is returned when not a single record of a suite parses.
	ErrNoRecords = errors.New("no valid EPD records found")
	// ErrInvalidRecord wraps the reason a single line was rejected.
	ErrInvalidRecord = errors.New("invalid EPD record")
)

// ParseFile loads the suite at path.
func ParseFile(path string) (*PositionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse reads one record per line. Lines that do not hold a valid record
// with a ruling are skipped; if nothing survives ErrNoRecords is returned.
// Input that is not valid UTF-8 is read as ISO-8859-1.
func Parse(r io.Reader) (*PositionSet, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		raw, _, err = transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
		if err != nil {
			return nil, err
		}
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			log.Debug().Err(err).Int("line", lineNo).Msg("skipping-epd-record")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	log.Debug().Int("records", len(records)).Int("lines", lineNo).Msg("parsed-epd")
	return NewPositionSet(records), nil
}

// ParseRecord parses a single EPD line.
func ParseRecord(line string) (Record, error) {
	fields, rest := leadingFields(line, 4)
	if len(fields) < 4 {
		return Record{}, fmt.Errorf("%w: must have at least 4 space-separated fields", ErrInvalidRecord)
	}
	ops, err := parseOperations(rest)
	if err != nil {
		return Record{}, err
	}

	halfmoves, fullmoves := "0", "1"
	if v, ok := ops[OpHalfmoves]; ok {
		halfmoves = v
	}
	if v, ok := ops[OpFullmoves]; ok {
		fullmoves = v
	}
	fen := strings.Join(append(fields, halfmoves, fullmoves), " ")
	if _, err := chess.FEN(fen); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	ruling, err := parseRuling(ops[OpPoints], ops[OpMoves])
	if err != nil {
		return Record{}, err
	}
	return Record{ID: ops[OpID], FEN: fen, Ruling: ruling}, nil
}

func parseRuling(points, moves string) (Ruling, error) {
	pts := strings.Fields(points)
	mvs := strings.Fields(moves)
	if len(mvs) == 0 {
		return nil, fmt.Errorf("%w: no %s moves", ErrInvalidRecord, OpMoves)
	}
	if len(pts) != len(mvs) {
		return nil, fmt.Errorf("%w: %d points for %d moves", ErrInvalidRecord, len(pts), len(mvs))
	}
	ruling := make(Ruling, len(mvs))
	for i := range mvs {
		p, err := strconv.Atoi(pts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: points %q: %v", ErrInvalidRecord, pts[i], err)
		}
		if p < 0 {
			return nil, fmt.Errorf("%w: negative points %d", ErrInvalidRecord, p)
		}
		ruling[i] = MoveScore{Move: mvs[i], Points: p}
	}
	return ruling, nil
}

// leadingFields returns up to n whitespace-separated fields and whatever
// follows them.
func leadingFields(s string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	for len(fields) < n {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			break
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		fields = append(fields, s[:end])
		s = s[end:]
	}
	return fields, s
}

// parseOperations splits "op a b; op2 \"x; y\";" into opcode -> operand.
// Quoted operands keep their spaces and semicolons; multiple operands are
// joined by single spaces. A repeated opcode overrides the earlier one.
func parseOperations(s string) (map[string]string, error) {
	ops := map[string]string{}
	var tokens []string
	var cur strings.Builder
	inToken, inQuote, escaped := false, false, false

	endToken := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}
	endOp := func() {
		endToken()
		if len(tokens) > 0 {
			ops[tokens[0]] = strings.Join(tokens[1:], " ")
		}
		tokens = tokens[:0]
	}

	for _, rn := range s {
		switch {
		case escaped:
			cur.WriteRune(rn)
			escaped = false
		case inQuote && rn == '\\':
			escaped = true
		case inQuote && rn == '"':
			inQuote = false
		case inQuote:
			cur.WriteRune(rn)
		case rn == '"':
			inQuote = true
			inToken = true
		case rn == ';':
			endOp()
		case unicode.IsSpace(rn):
			endToken()
		default:
			cur.WriteRune(rn)
			inToken = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quoted operand", ErrInvalidRecord)
	}
	endOp()
	return ops, nil
}
