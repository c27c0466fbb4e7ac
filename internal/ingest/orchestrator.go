package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/calendar"
	"github.com/brmlabs/renewal-calendar/internal/entity"
	"github.com/brmlabs/renewal-calendar/internal/extract"
	"github.com/brmlabs/renewal-calendar/internal/llm"
	"github.com/brmlabs/renewal-calendar/internal/metrics"
)

// RecordSession is one independent unit of work against the record store,
// owned by a single ingestion task.
type RecordSession interface {
	CreateContract(ctx context.Context, c *entity.Contract) error
	UpdateContract(ctx context.Context, c *entity.Contract) error
	SetStatus(ctx context.Context, id uuid.UUID, status constants.ExtractionStatus) error
	Close() error
}

// SessionFactory opens a fresh RecordSession for one task.
type SessionFactory func(ctx context.Context) (RecordSession, error)

// BlobWriter is the slice of the blob store the orchestrator needs.
type BlobWriter interface {
	Write(name string, data []byte) (string, error)
}

// Upload is one submitted document.
type Upload struct {
	FileName string
	Content  []byte
}

// Outcome is the per-document result of a batch. ID is Nil when the record
// could not even be created.
type Outcome struct {
	ID       uuid.UUID                  `json:"id"`
	FileName string                     `json:"file_name"`
	Status   constants.ExtractionStatus `json:"extraction_status"`
}

// Orchestrator drives ingestion: blob write, pending record, text
// extraction, field extraction, record finalization. Documents in a batch
// run concurrently and fail independently.
type Orchestrator struct {
	logger     *slog.Logger
	blobs      BlobWriter
	sessions   SessionFactory
	text       extract.TextExtractor
	fields     llm.FieldExtractor
	llmTimeout time.Duration
	workers    int
}

func NewOrchestrator(
	logger *slog.Logger,
	blobs BlobWriter,
	sessions SessionFactory,
	text extract.TextExtractor,
	fields llm.FieldExtractor,
	llmTimeout time.Duration,
	workers int,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		logger:     logger,
		blobs:      blobs,
		sessions:   sessions,
		text:       text,
		fields:     fields,
		llmTimeout: llmTimeout,
		workers:    workers,
	}
}

// IngestBatch processes uploads concurrently, one task per document, and
// returns outcomes in submission order. A document's failure at any stage
// never affects its siblings and never fails the batch; there is no retry
// and no cancellation of in-flight siblings.
func (o *Orchestrator) IngestBatch(ctx context.Context, uploads []Upload) []Outcome {
	outcomes := make([]Outcome, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, up := range uploads {
		g.Go(func() error {
			outcomes[i] = o.ingestOne(gctx, up)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// ingestOne walks one document through the state machine
// received -> text_extracted -> fields_extracted -> persisted, recording a
// terminal failed status on the owning record for every failure branch so
// the caller always has a row to inspect.
func (o *Orchestrator) ingestOne(ctx context.Context, up Upload) (out Outcome) {
	start := time.Now()
	out = Outcome{FileName: up.FileName, Status: constants.StatusFailed}

	var (
		sess     RecordSession
		contract *entity.Contract
	)
	defer func() {
		// Unexpected faults are isolated to this document; the record, if
		// one exists, is marked failed.
		if r := recover(); r != nil {
			o.logger.Error("ingest.panic", "file_name", up.FileName, "panic", r)
			if sess != nil && contract != nil {
				_ = sess.SetStatus(ctx, contract.ID, constants.StatusFailed)
				out.ID = contract.ID
			}
			out.Status = constants.StatusFailed
		}
		if sess != nil {
			_ = sess.Close()
		}
		metrics.DocumentsIngested.WithLabelValues(string(out.Status)).Inc()
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	blobName := uuid.New().String() + "_" + up.FileName
	path, err := o.blobs.Write(blobName, up.Content)
	if err != nil {
		o.logger.Error("ingest.blob_write_failed", "file_name", up.FileName, "error", err)
		return out
	}

	sess, err = o.sessions(ctx)
	if err != nil {
		o.logger.Error("ingest.session_failed", "file_name", up.FileName, "error", err)
		return out
	}

	contract = &entity.Contract{
		FileName:         up.FileName,
		PDFPath:          path,
		ExtractionStatus: constants.StatusPending,
	}
	if err := sess.CreateContract(ctx, contract); err != nil {
		o.logger.Error("ingest.create_failed", "file_name", up.FileName, "error", err)
		return out
	}
	out.ID = contract.ID

	text := o.text.ExtractText(ctx, path)
	if strings.TrimSpace(text) == "" {
		o.logger.Warn("ingest.text.empty", "id", contract.ID, "file_name", up.FileName)
		_ = sess.SetStatus(ctx, contract.ID, constants.StatusFailed)
		return out
	}
	o.logger.Info("ingest.text.ok", "id", contract.ID, "bytes", len(text))

	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	fields, _, err := o.fields.ExtractFields(llmCtx, text)
	cancel()
	if err != nil {
		o.logger.Warn("ingest.fields.no_result", "id", contract.ID, "error", err)
		_ = sess.SetStatus(ctx, contract.ID, constants.StatusFailed)
		return out
	}

	applyExtraction(contract, fields)
	if err := sess.UpdateContract(ctx, contract); err != nil {
		o.logger.Error("ingest.persist_failed", "id", contract.ID, "error", err)
		_ = sess.SetStatus(ctx, contract.ID, constants.StatusFailed)
		return out
	}

	o.logger.Info("ingest.ok",
		"id", contract.ID,
		"vendor", contract.Display(),
		"needs_review", contract.NeedsReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	out.Status = constants.StatusSuccess
	return out
}

// applyExtraction copies a normalized extraction outcome onto the record,
// derives the display name and notice deadline, and finalizes status and
// confidence.
func applyExtraction(c *entity.Contract, fields llm.ContractFields) {
	c.VendorName = fields.VendorName
	c.StartDate = fields.StartDate
	c.EndDate = fields.EndDate
	c.RenewalDate = fields.RenewalDate
	c.RenewalTerm = fields.RenewalTerm
	c.NoticePeriodDays = fields.NoticePeriodDays
	c.NeedsReview = fields.NeedsReview
	c.ExtractionNotes = fields.ExtractionNotes
	c.UncertainFields = fields.UncertainFields
	c.CandidateDates = fields.CandidateDates

	display := displayName(fields.VendorName, c.FileName)
	c.DisplayName = &display

	c.NoticeDeadline = calendar.ComputeNoticeDeadline(c.RenewalDate, c.NoticePeriodDays)

	confidence := constants.ConfidenceFull
	if c.NeedsReview {
		confidence = constants.ConfidenceReview
	}
	c.ExtractionConfidence = &confidence
	c.ExtractionStatus = constants.StatusSuccess
}

// displayName prefers the extracted vendor name, else the original file
// name with its extension removed.
func displayName(vendor *string, fileName string) string {
	if vendor != nil && strings.TrimSpace(*vendor) != "" {
		return strings.TrimSpace(*vendor)
	}
	return entity.FileStem(fileName)
}
