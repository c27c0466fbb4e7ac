package constants

// ExtractionStatus is the canonical status of a contract's ingestion run.
type ExtractionStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending ExtractionStatus = "pending" // record created, extraction in flight
	StatusSuccess ExtractionStatus = "success" // fields extracted and persisted
	StatusFailed  ExtractionStatus = "failed"  // terminal failure for this document
)

// EventKind classifies derived calendar events.
type EventKind string

const (
	EventNoticeDeadline EventKind = "notice_deadline"
	EventRenewalDate    EventKind = "renewal_date"
	EventExpiration     EventKind = "expiration"
)

// Extraction confidence is a two-tier constant: extractions flagged for
// review score lower than fully confident ones.
const (
	ConfidenceReview = 0.7
	ConfidenceFull   = 1.0
)
