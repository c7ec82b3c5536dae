package epd

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	digitRuns      = regexp.MustCompile(`[0-9]+`)
	instanceSuffix = regexp.MustCompile(`\.[0-9]+$`)
)

// SplitID splits an id of the form "<suite>[.<instance>] [<description>]"
// at its first whitespace. The description loses any trailing ".<digits>";
// an id without whitespace has an empty description.
func SplitID(id string) (suiteID, description string) {
	idx := strings.IndexFunc(id, unicode.IsSpace)
	if idx < 0 {
		return id, ""
	}
	_, size := utf8.DecodeRuneInString(id[idx:])
	return id[:idx], instanceSuffix.ReplaceAllString(id[idx+size:], "")
}

// SuiteNumber returns the first run of digits in a suite id.
func SuiteNumber(suiteID string) (string, bool) {
	n := digitRuns.FindString(suiteID)
	return n, n != ""
}

// CompareNatural orders ids by the sequence of numbers they contain, so that
// "Suite.2" sorts before "Suite.10". When one sequence is a prefix of the
// other the shorter one comes first. Ids with equal sequences fall back to
// plain string order, which makes the ordering total.
func CompareNatural(a, b string) int {
	ra := digitRuns.FindAllString(a, -1)
	rb := digitRuns.FindAllString(b, -1)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if c := compareDigits(ra[i], rb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	}
	return strings.Compare(a, b)
}

// CompareSuites orders suite ids by their first number. Suites without a
// number come first; ties fall back to string order.
func CompareSuites(a, b string) int {
	na, oka := SuiteNumber(a)
	nb, okb := SuiteNumber(b)
	switch {
	case !oka && okb:
		return -1
	case oka && !okb:
		return 1
	case oka && okb:
		if c := compareDigits(na, nb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// compareDigits compares two decimal strings numerically without parsing,
// so arbitrarily long runs cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
