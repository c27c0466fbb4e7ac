package llm

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	reParenNumber = regexp.MustCompile(`\((\d+)\)`)
	reFirstNumber = regexp.MustCompile(`(\d+)`)
)

var dateFields = []string{"start_date", "end_date", "renewal_date", "notice_deadline"}

// Normalize validates and repairs the raw field map from an extraction
// response. Every field independently degrades to unknown (nil); a single
// malformed field never aborts normalization of the rest.
func Normalize(data map[string]any) ContractFields {
	var out ContractFields

	dates := make(map[string]*time.Time, len(dateFields))
	for _, field := range dateFields {
		dates[field] = parseISODate(data[field])
	}
	out.StartDate = dates["start_date"]
	out.EndDate = dates["end_date"]
	out.RenewalDate = dates["renewal_date"]
	out.NoticeDeadline = dates["notice_deadline"]

	out.VendorName = trimmedString(data["vendor_name"])
	out.RenewalTerm = trimmedString(data["renewal_term"])

	// Infer a missing end date from the start date plus a term length found
	// in the renewal term or any other term-ish text field.
	if out.EndDate == nil && out.StartDate != nil {
		if months, ok := inferTermMonths(data); ok {
			end := AddMonths(*out.StartDate, months)
			out.EndDate = &end
		}
	}

	out.NoticePeriodDays = parseNoticePeriodDays(data["notice_period_days"])

	return out
}

// inferTermMonths looks for a month count first in renewal_term, then in any
// other text field whose key mentions term, length, or duration. The
// fallback scans keys in sorted order so the pick is stable when several
// fields parse.
func inferTermMonths(data map[string]any) (int, bool) {
	if term, ok := data["renewal_term"].(string); ok {
		if months, ok := ParseTermMonths(term); ok {
			return months, true
		}
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		text, ok := data[key].(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(key)
		if strings.Contains(lower, "term") || strings.Contains(lower, "length") || strings.Contains(lower, "duration") {
			if months, ok := ParseTermMonths(text); ok {
				return months, true
			}
		}
	}
	return 0, false
}

// parseNoticePeriodDays accepts an integer directly; from text it prefers a
// parenthesised number ("sixty (60) days" -> 60) before the first standalone
// number. Anything else is unknown.
func parseNoticePeriodDays(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		n := int(t)
		if n < 0 {
			return nil
		}
		return &n
	case int:
		if t < 0 {
			return nil
		}
		n := t
		return &n
	case string:
		if m := reParenNumber.FindStringSubmatch(t); m != nil {
			return atoiPtr(m[1])
		}
		if m := reFirstNumber.FindStringSubmatch(t); m != nil {
			return atoiPtr(m[1])
		}
	}
	return nil
}

func atoiPtr(s string) *int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return &n
}

// parseISODate parses a value as an ISO calendar date (midnight UTC). Parse
// failure or absence yields nil, not an error.
func parseISODate(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Accept a plain date or a full ISO timestamp, keeping the date part.
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

func trimmedString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// AddMonths advances a calendar date by a number of months, clamping the
// day-of-month to the last valid day of the resulting month: Jan 31 + 1
// month is Feb 28 (or 29), never Mar 3.
func AddMonths(t time.Time, months int) time.Time {
	totalMonths := int(t.Month()) - 1 + months
	year := t.Year() + totalMonths/12
	month := time.Month(totalMonths%12 + 1)

	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysInMonth uses the day-zero-of-next-month trick.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
