package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDigitMonths = regexp.MustCompile(`(\d+)\s*months?`)
	reDigitYears  = regexp.MustCompile(`(\d+)\s*years?`)
)

// Spelled-out vocabulary, longest words first so "thirty-six months" never
// matches the embedded "six".
var numberWords = []struct {
	word string
	n    int
}{
	{"twenty-four", 24},
	{"thirty-six", 36},
	{"eleven", 11},
	{"twelve", 12},
	{"one", 1},
	{"two", 2},
	{"three", 3},
	{"four", 4},
	{"five", 5},
	{"six", 6},
	{"seven", 7},
	{"eight", 8},
	{"nine", 9},
	{"ten", 10},
}

// ParseTermMonths extracts a month count from free-text renewal-term
// descriptions like "24 months", "2 years" or "twenty-four months".
// First match wins; unmatched text yields (0, false), never an error.
func ParseTermMonths(term string) (int, bool) {
	term = strings.ToLower(term)

	if m := reDigitMonths.FindStringSubmatch(term); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := reDigitYears.FindStringSubmatch(term); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 12, true
		}
	}

	for _, nw := range numberWords {
		if strings.Contains(term, nw.word+" month") {
			return nw.n, true
		}
		if strings.Contains(term, nw.word+" year") {
			return nw.n * 12, true
		}
	}

	return 0, false
}
