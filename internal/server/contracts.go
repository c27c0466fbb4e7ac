package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/calendar"
	"github.com/brmlabs/renewal-calendar/internal/common"
	"github.com/brmlabs/renewal-calendar/internal/entity"
	"github.com/brmlabs/renewal-calendar/internal/export"
	"github.com/brmlabs/renewal-calendar/internal/extract"
	"github.com/brmlabs/renewal-calendar/internal/ingest"
)

// ContractStore is the record-store surface the handlers need.
type ContractStore interface {
	GetContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	ListContracts(ctx context.Context) ([]*entity.Contract, error)
	UpdateContract(ctx context.Context, c *entity.Contract) error
	DeleteContract(ctx context.Context, id uuid.UUID) error
	DeleteAllContracts(ctx context.Context) (int64, error)
}

// BlobStore is the blob-store surface the handlers need. Delete and Purge
// are best-effort and never fail the request.
type BlobStore interface {
	Read(path string) ([]byte, error)
	Exists(path string) bool
	Delete(path string)
	Purge()
}

type ContractHandler struct {
	store        ContractStore
	blobs        BlobStore
	orchestrator *ingest.Orchestrator
	text         extract.TextExtractor
	exporter     *export.Service
	logger       *slog.Logger
}

func NewContractHandler(
	store ContractStore,
	blobs BlobStore,
	orchestrator *ingest.Orchestrator,
	text extract.TextExtractor,
	exporter *export.Service,
	logger *slog.Logger,
) *ContractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractHandler{
		store:        store,
		blobs:        blobs,
		orchestrator: orchestrator,
		text:         text,
		exporter:     exporter,
		logger:       logger,
	}
}

// Upload handles multi-file contract upload: each file becomes one
// concurrent ingestion task; per-file outcomes come back in submission
// order regardless of individual failures.
func (h *ContractHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "multipart form required"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "no files provided"))
		return
	}

	uploads := make([]ingest.Upload, 0, len(files))
	for _, fh := range files {
		if !constants.IsAllowedExt(filepath.Ext(fh.Filename)) {
			c.JSON(http.StatusBadRequest, errorEnvelope("bad_request",
				fmt.Sprintf("unsupported file type: %s", fh.Filename)))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "failed to read upload"))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "failed to read upload"))
			return
		}
		uploads = append(uploads, ingest.Upload{FileName: fh.Filename, Content: data})
	}

	h.logger.Info("upload.batch", "files", len(uploads))
	outcomes := h.orchestrator.IngestBatch(c.Request.Context(), uploads)
	c.JSON(http.StatusOK, gin.H{"items": outcomes})
}

func (h *ContractHandler) List(c *gin.Context) {
	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}
	if contracts == nil {
		contracts = []*entity.Contract{}
	}
	c.JSON(http.StatusOK, contracts)
}

func (h *ContractHandler) Get(c *gin.Context) {
	contract, ok := h.contractByParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, contract)
}

// contractUpdate carries the updatable fields; absent fields are left
// untouched. Dates are ISO YYYY-MM-DD strings; an explicit null clears the
// date, which is why the date fields need a tri-state wrapper rather than a
// plain pointer.
type contractUpdate struct {
	DisplayName      *string      `json:"display_name"`
	VendorName       *string      `json:"vendor_name"`
	StartDate        optionalDate `json:"start_date"`
	EndDate          optionalDate `json:"end_date"`
	RenewalDate      optionalDate `json:"renewal_date"`
	RenewalTerm      *string      `json:"renewal_term"`
	NoticePeriodDays *int         `json:"notice_period_days"`
	NeedsReview      *bool        `json:"needs_review"`
	ExtractionNotes  *string      `json:"extraction_notes"`
}

// optionalDate distinguishes an absent key (leave the field alone) from an
// explicit null (clear it) from a date string (set it).
type optionalDate struct {
	set   bool
	value *time.Time
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDate
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return errInvalidDate
	}
	o.value = &t
	return nil
}

var errInvalidDate = errors.New("dates must be ISO YYYY-MM-DD or null")

// Update applies a partial edit and recomputes the notice deadline, which
// is always a function of renewal date and notice period, never set
// directly.
func (h *ContractHandler) Update(c *gin.Context) {
	contract, ok := h.contractByParam(c)
	if !ok {
		return
	}

	var upd contractUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorEnvelope("validation_error", err.Error()))
		return
	}

	if upd.DisplayName != nil {
		contract.DisplayName = upd.DisplayName
	}
	if upd.VendorName != nil {
		contract.VendorName = upd.VendorName
	}
	for _, d := range []struct {
		opt  optionalDate
		dest **time.Time
	}{
		{upd.StartDate, &contract.StartDate},
		{upd.EndDate, &contract.EndDate},
		{upd.RenewalDate, &contract.RenewalDate},
	} {
		if d.opt.set {
			*d.dest = d.opt.value
		}
	}
	if upd.RenewalTerm != nil {
		contract.RenewalTerm = upd.RenewalTerm
	}
	if upd.NoticePeriodDays != nil {
		contract.NoticePeriodDays = upd.NoticePeriodDays
	}
	if upd.NeedsReview != nil {
		contract.NeedsReview = *upd.NeedsReview
	}
	if upd.ExtractionNotes != nil {
		contract.ExtractionNotes = upd.ExtractionNotes
	}

	contract.NoticeDeadline = calendar.ComputeNoticeDeadline(contract.RenewalDate, contract.NoticePeriodDays)

	if err := h.store.UpdateContract(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to update contract"))
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *ContractHandler) Delete(c *gin.Context) {
	contract, ok := h.contractByParam(c)
	if !ok {
		return
	}

	// best-effort file cleanup before the row goes away
	h.blobs.Delete(contract.PDFPath)

	if err := h.store.DeleteContract(c.Request.Context(), contract.ID); err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to delete contract"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted successfully"})
}

// ClearAll deletes every contract and purges the upload directory of
// orphaned files.
func (h *ContractHandler) ClearAll(c *gin.Context) {
	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}
	for _, contract := range contracts {
		h.blobs.Delete(contract.PDFPath)
	}

	n, err := h.store.DeleteAllContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to clear contracts"))
		return
	}
	h.blobs.Purge()

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Cleared %d contracts and removed uploads", n)})
}

// PDF streams the stored document, inline by default or as an attachment
// with ?download=true.
func (h *ContractHandler) PDF(c *gin.Context) {
	contract, ok := h.contractByParam(c)
	if !ok {
		return
	}
	if !h.blobs.Exists(contract.PDFPath) {
		c.JSON(http.StatusNotFound, errorEnvelope("not_found", "PDF file not found"))
		return
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	filename := contract.Display() + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	c.File(contract.PDFPath)
}

// OCRText re-runs text extraction for a stored document, using the same
// per-page OCR fallback as ingestion. Useful for previews of documents
// without an embedded text layer.
func (h *ContractHandler) OCRText(c *gin.Context) {
	contract, ok := h.contractByParam(c)
	if !ok {
		return
	}
	if !h.blobs.Exists(contract.PDFPath) {
		c.JSON(http.StatusNotFound, errorEnvelope("not_found", "PDF file not found"))
		return
	}
	text := h.text.ExtractText(c.Request.Context(), contract.PDFPath)
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// XLSX exports all contracts as a workbook report.
func (h *ContractHandler) XLSX(c *gin.Context) {
	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}
	data, err := h.exporter.ContractsXLSX(contracts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to build report"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+export.XLSXFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// contractByParam resolves the :id path parameter to a record, writing the
// appropriate error response when it cannot.
func (h *ContractHandler) contractByParam(c *gin.Context) (*entity.Contract, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "invalid contract id"))
		return nil, false
	}
	contract, err := h.store.GetContract(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorEnvelope("not_found", "Contract not found"))
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to load contract"))
		return nil, false
	}
	return contract, true
}
