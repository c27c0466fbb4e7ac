package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/common"
	"github.com/brmlabs/renewal-calendar/internal/entity"
	"github.com/brmlabs/renewal-calendar/internal/export"
	"github.com/brmlabs/renewal-calendar/internal/ingest"
	"github.com/brmlabs/renewal-calendar/internal/llm"
)

type memStore struct {
	contracts map[uuid.UUID]*entity.Contract
	order     []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{contracts: map[uuid.UUID]*entity.Contract{}}
}

func (s *memStore) add(c *entity.Contract) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.contracts[c.ID] = c
	s.order = append(s.order, c.ID)
}

func (s *memStore) GetContract(_ context.Context, id uuid.UUID) (*entity.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListContracts(context.Context) ([]*entity.Contract, error) {
	out := make([]*entity.Contract, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.contracts[id])
	}
	return out, nil
}

func (s *memStore) UpdateContract(_ context.Context, c *entity.Contract) error {
	if _, ok := s.contracts[c.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *memStore) DeleteContract(_ context.Context, id uuid.UUID) error {
	if _, ok := s.contracts[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.contracts, id)
	return nil
}

func (s *memStore) DeleteAllContracts(context.Context) (int64, error) {
	n := int64(len(s.contracts))
	s.contracts = map[uuid.UUID]*entity.Contract{}
	s.order = nil
	return n, nil
}

type memBlobs struct {
	deleted []string
	purged  bool
}

func (b *memBlobs) Write(name string, _ []byte) (string, error) { return "/blobs/" + name, nil }
func (b *memBlobs) Read(string) ([]byte, error)                 { return []byte("%PDF"), nil }
func (b *memBlobs) Exists(string) bool                          { return true }
func (b *memBlobs) Delete(path string)                          { b.deleted = append(b.deleted, path) }
func (b *memBlobs) Purge()                                      { b.purged = true }

type stubText struct{}

func (stubText) ExtractText(context.Context, string) string { return "contract body text" }

type stubFields struct{}

func (stubFields) ExtractFields(context.Context, string) (llm.ContractFields, []byte, error) {
	vendor := "Acme, Inc."
	return llm.ContractFields{VendorName: &vendor}, nil, nil
}

type stubSession struct{ store *memStore }

func (s stubSession) CreateContract(_ context.Context, c *entity.Contract) error {
	s.store.add(c)
	return nil
}
func (s stubSession) UpdateContract(_ context.Context, c *entity.Contract) error {
	cp := *c
	s.store.contracts[c.ID] = &cp
	return nil
}
func (s stubSession) SetStatus(_ context.Context, id uuid.UUID, status constants.ExtractionStatus) error {
	if c, ok := s.store.contracts[id]; ok {
		c.ExtractionStatus = status
	}
	return nil
}
func (stubSession) Close() error { return nil }

type stubMailer struct {
	sent int
	err  error
}

func (m *stubMailer) SendCalendar([]string, string, string) error {
	m.sent++
	return m.err
}

func newTestServer(t *testing.T) (*gin.Engine, *memStore, *memBlobs, *stubMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	blobs := &memBlobs{}
	mailer := &stubMailer{}

	sessions := func(context.Context) (ingest.RecordSession, error) {
		return stubSession{store: store}, nil
	}
	orchestrator := ingest.NewOrchestrator(nil, blobs, sessions, stubText{}, stubFields{}, time.Second, 2)

	contracts := NewContractHandler(store, blobs, orchestrator, stubText{}, export.NewService(nil), nil)
	cal := NewCalendarHandler(store, mailer, nil)
	router := NewRouter(contracts, cal, []string{"http://localhost:5173"})
	return router, store, blobs, mailer
}

func seedContract(store *memStore) *entity.Contract {
	vendor := "Acme, Inc."
	days := 60
	renewal := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)

	c := &entity.Contract{
		FileName:         "acme.pdf",
		DisplayName:      &vendor,
		VendorName:       &vendor,
		RenewalDate:      &renewal,
		NoticePeriodDays: &days,
		NoticeDeadline:   &deadline,
		ExtractionStatus: constants.StatusSuccess,
		PDFPath:          "/blobs/acme.pdf",
	}
	store.add(c)
	return c
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _, _, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListContracts(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodGet, "/contracts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []entity.Contract
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Acme, Inc.", *got[0].VendorName)
}

func TestGetContractErrors(t *testing.T) {
	router, _, _, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/contracts/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/contracts/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateContractRecomputesDeadline(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	c := seedContract(store)

	w := doJSON(t, router, http.MethodPut, "/contracts/"+c.ID.String(), map[string]any{
		"renewal_date":       "2025-06-01",
		"notice_period_days": 30,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.GetContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), *got.NoticeDeadline)
}

func TestUpdateContractNullClearsDate(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	c := seedContract(store)

	// An explicit null erases the renewal date and with it the derived
	// notice deadline; the untouched fields keep their values.
	w := doJSON(t, router, http.MethodPut, "/contracts/"+c.ID.String(), map[string]any{
		"renewal_date": nil,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.GetContract(context.Background(), c.ID)
	require.NoError(t, err)
	require.Nil(t, got.RenewalDate)
	require.Nil(t, got.NoticeDeadline)
	require.NotNil(t, got.NoticePeriodDays)
	require.Equal(t, "Acme, Inc.", *got.VendorName)
}

func TestUpdateContractRejectsBadDate(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	c := seedContract(store)

	w := doJSON(t, router, http.MethodPut, "/contracts/"+c.ID.String(), map[string]any{
		"start_date": "06/01/2025",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeleteContractRemovesBlob(t *testing.T) {
	router, store, blobs, _ := newTestServer(t)
	c := seedContract(store)

	w := doJSON(t, router, http.MethodDelete, "/contracts/"+c.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, blobs.deleted, "/blobs/acme.pdf")

	_, err := store.GetContract(context.Background(), c.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearAllPurges(t *testing.T) {
	router, store, blobs, _ := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodDelete, "/contracts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, blobs.purged)

	list, _ := store.ListContracts(context.Background())
	require.Empty(t, list)
}

func uploadRequest(t *testing.T, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/contracts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadContracts(t *testing.T) {
	router, store, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "first.pdf", "second.pdf"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []ingest.Outcome `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	require.Equal(t, "first.pdf", resp.Items[0].FileName)
	require.Equal(t, constants.StatusSuccess, resp.Items[0].Status)

	list, _ := store.ListContracts(context.Background())
	require.Len(t, list, 2)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	router, _, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "notes.txt"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unsupported file type")
}

func TestCalendarEvents(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodGet, "/calendar", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []entity.CalendarEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2) // notice deadline and renewal
}

func TestCalendarICS(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodGet, "/calendar.ics?reminder_days=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	require.Contains(t, w.Header().Get("Content-Disposition"), "brm-renewal-calendar.ics")
	require.Contains(t, w.Body.String(), "TRIGGER:-PT1440M")

	w = doJSON(t, router, http.MethodGet, "/calendar.ics?reminder_days=x", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarEmail(t *testing.T) {
	router, store, _, mailer := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodPost, "/calendar/email", map[string]any{
		"to": []string{"ops@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, mailer.sent)
}

func TestCalendarEmailValidation(t *testing.T) {
	router, _, _, mailer := newTestServer(t)

	for _, body := range []map[string]any{
		{},
		{"to": []string{}},
		{"to": []string{"not-an-email"}},
	} {
		w := doJSON(t, router, http.MethodPost, "/calendar/email", body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	}
	require.Zero(t, mailer.sent)
}

func TestCalendarEmailSendFailure(t *testing.T) {
	router, store, _, mailer := newTestServer(t)
	seedContract(store)
	mailer.err = errors.New("smtp down")

	w := doJSON(t, router, http.MethodPost, "/calendar/email", map[string]any{
		"to": []string{"ops@example.com"},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestXLSXExport(t *testing.T) {
	router, store, _, _ := newTestServer(t)
	seedContract(store)

	w := doJSON(t, router, http.MethodGet, "/contracts.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "contracts.xlsx")
	require.NotEmpty(t, w.Body.Bytes())
}

func TestRequestIDHeader(t *testing.T) {
	router, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", strings.NewReader(""))
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))

	w = doJSON(t, router, http.MethodGet, "/health", nil)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
