package entity

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brmlabs/renewal-calendar/constants"
)

// Contract represents one ingested agreement document plus its derived
// metadata, for transfer between layers. All dates are calendar dates
// (midnight UTC, no time component).
type Contract struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	DisplayName *string   `json:"display_name,omitempty"`
	VendorName  *string   `json:"vendor_name,omitempty"`

	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	RenewalDate      *time.Time `json:"renewal_date,omitempty"`
	RenewalTerm      *string    `json:"renewal_term,omitempty"`
	NoticePeriodDays *int       `json:"notice_period_days,omitempty"`
	NoticeDeadline   *time.Time `json:"notice_deadline,omitempty"`

	ExtractionStatus     constants.ExtractionStatus `json:"extraction_status"`
	ExtractionConfidence *float64                   `json:"extraction_confidence,omitempty"`

	NeedsReview     bool                   `json:"needs_review"`
	ExtractionNotes *string                `json:"extraction_notes,omitempty"`
	UncertainFields []string               `json:"uncertain_fields,omitempty"`
	CandidateDates  map[string][]time.Time `json:"candidate_dates,omitempty"`

	PDFPath   string    `json:"pdf_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Display returns the name shown in calendars and listings: vendor name if
// present, else the original file name without its extension.
func (c *Contract) Display() string {
	if c.DisplayName != nil && strings.TrimSpace(*c.DisplayName) != "" {
		return *c.DisplayName
	}
	return FileStem(c.FileName)
}

// FileStem strips the extension from a file name.
func FileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// CalendarEvent is derived from a contract's date fields on every read.
// It is never persisted; ids are deterministic so re-derivation is idempotent.
type CalendarEvent struct {
	ID         string              `json:"id"`
	ContractID uuid.UUID           `json:"contract_id"`
	Date       time.Time           `json:"date"`
	Kind       constants.EventKind `json:"kind"`
	Title      string              `json:"title"`
	Subtitle   string              `json:"subtitle"`
}
