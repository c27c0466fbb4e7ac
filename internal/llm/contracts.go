package llm

import (
	"context"
	"time"
)

// ContractFields is the normalized extraction outcome: validated field
// values plus uncertainty metadata. Nil pointers mean "unknown"; a field
// that failed to parse degrades to unknown instead of erroring.
type ContractFields struct {
	VendorName       *string    `json:"vendor_name"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	RenewalDate      *time.Time `json:"renewal_date"`
	RenewalTerm      *string    `json:"renewal_term"`
	NoticePeriodDays *int       `json:"notice_period_days"`
	NoticeDeadline   *time.Time `json:"notice_deadline"`

	UncertainFields []string               `json:"uncertain_fields,omitempty"`
	CandidateDates  map[string][]time.Time `json:"candidate_dates,omitempty"`
	ExtractionNotes *string                `json:"extraction_notes,omitempty"`
	NeedsReview     bool                   `json:"needs_review"`
}

// FieldExtractor is the interface the ingestion pipeline depends on. All
// failure modes (missing credential, transport, unparsable response) surface
// as an error wrapping common.ErrNoResult; the raw model payload is returned
// when available for diagnostics.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (ContractFields, []byte /*rawJSON*/, error)
}
