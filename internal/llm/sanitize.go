package llm

import (
	"strings"
	"time"
)

// allowedUncertainFields is the only set of fields the extractor may flag as
// ambiguous; everything else is dropped silently.
var allowedUncertainFields = map[string]struct{}{
	"start_date":   {},
	"end_date":     {},
	"renewal_date": {},
}

const maxCandidatesPerField = 3

// SanitizeUncertainty folds the model's uncertainty metadata into fields:
// keeps only uncertain-field names within the allowed set, keeps only
// candidate dates that parse as valid ISO dates (truncated to 3 per field),
// and sets NeedsReview iff the sanitized uncertain list is non-empty.
func SanitizeUncertainty(data map[string]any, fields *ContractFields) {
	if raw, ok := data["uncertain_fields"].([]any); ok {
		for _, v := range raw {
			name, ok := v.(string)
			if !ok {
				continue
			}
			if _, allowed := allowedUncertainFields[name]; allowed {
				fields.UncertainFields = append(fields.UncertainFields, name)
			}
		}
	}

	if raw, ok := data["candidate_dates"].(map[string]any); ok {
		for name, v := range raw {
			if _, allowed := allowedUncertainFields[name]; !allowed {
				continue
			}
			list, ok := v.([]any)
			if !ok {
				continue
			}
			var dates []time.Time
			for _, item := range list {
				if d := parseISODate(item); d != nil {
					dates = append(dates, *d)
				}
				if len(dates) == maxCandidatesPerField {
					break
				}
			}
			if len(dates) > 0 {
				if fields.CandidateDates == nil {
					fields.CandidateDates = make(map[string][]time.Time)
				}
				fields.CandidateDates[name] = dates
			}
		}
	}

	if note, ok := data["extraction_notes"].(string); ok {
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			fields.ExtractionNotes = &trimmed
		}
	}

	fields.NeedsReview = len(fields.UncertainFields) > 0
}
