package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeUncertaintyFiltersFields(t *testing.T) {
	var fields ContractFields
	SanitizeUncertainty(map[string]any{
		"uncertain_fields": []any{"start_date", "vendor_name", "renewal_date", 7},
	}, &fields)

	require.Equal(t, []string{"start_date", "renewal_date"}, fields.UncertainFields)
	require.True(t, fields.NeedsReview)
}

func TestSanitizeUncertaintyCandidateDates(t *testing.T) {
	var fields ContractFields
	SanitizeUncertainty(map[string]any{
		"uncertain_fields": []any{"end_date"},
		"candidate_dates": map[string]any{
			"end_date":    []any{"2025-01-01", "garbage", "2025-06-30", "2025-12-31", "2026-01-01"},
			"vendor_name": []any{"2025-01-01"},
		},
	}, &fields)

	require.Len(t, fields.CandidateDates, 1)
	dates := fields.CandidateDates["end_date"]
	require.Len(t, dates, 3) // truncated, invalid entry dropped
	require.Equal(t, date(2025, time.January, 1), dates[0])
	require.Equal(t, date(2025, time.June, 30), dates[1])
	require.Equal(t, date(2025, time.December, 31), dates[2])
}

func TestSanitizeUncertaintyNeedsReviewFollowsList(t *testing.T) {
	var fields ContractFields
	SanitizeUncertainty(map[string]any{
		"uncertain_fields": []any{"vendor_name"}, // disallowed, so list stays empty
		"candidate_dates": map[string]any{
			"start_date": []any{"2024-01-01"},
		},
	}, &fields)

	require.Empty(t, fields.UncertainFields)
	require.False(t, fields.NeedsReview)
	require.Len(t, fields.CandidateDates["start_date"], 1)
}

func TestSanitizeUncertaintyExtractionNotes(t *testing.T) {
	var fields ContractFields
	SanitizeUncertainty(map[string]any{
		"extraction_notes": "  two plausible end dates  ",
	}, &fields)

	require.NotNil(t, fields.ExtractionNotes)
	require.Equal(t, "two plausible end dates", *fields.ExtractionNotes)
	require.False(t, fields.NeedsReview)
}
