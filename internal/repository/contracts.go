package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/common"
	"github.com/brmlabs/renewal-calendar/internal/entity"
)

// DBTX is satisfied by *sql.DB and *sql.Conn, letting the same queries run
// on the shared pool or on a per-task session connection.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContractRepository is the record store for contracts.
type ContractRepository struct {
	queries
	db *sql.DB
}

func NewContractRepository(db *sql.DB, dsn string, logger *slog.Logger) *ContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractRepository{
		queries: queries{dbtx: db, pg: isPostgres(dsn), logger: logger},
		db:      db,
	}
}

// ContractSession is an independent unit of work bound to its own pooled
// connection. Each concurrent ingestion task owns one, so one document's
// persistence never serializes with another's at the application layer.
type ContractSession struct {
	queries
	conn *sql.Conn
}

func (r *ContractRepository) Session(ctx context.Context) (*ContractSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return &ContractSession{
		queries: queries{dbtx: conn, pg: r.pg, logger: r.logger},
		conn:    conn,
	}, nil
}

func (s *ContractSession) Close() error {
	return s.conn.Close()
}

type queries struct {
	dbtx   DBTX
	pg     bool
	logger *slog.Logger
}

// dbTimeLayout keeps the fractional second fixed-width so lexicographic
// order on stored timestamps matches chronological order. RFC3339Nano trims
// trailing zeros and breaks that.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const contractColumns = `id, file_name, display_name, vendor_name, start_date, end_date,
	renewal_date, renewal_term, notice_period_days, notice_deadline,
	extraction_status, extraction_confidence, needs_review, extraction_notes,
	uncertain_fields, candidate_dates, pdf_path, created_at, updated_at`

// CreateContract inserts a new record, assigning id and timestamps.
func (q queries) CreateContract(ctx context.Context, c *entity.Contract) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ExtractionStatus == "" {
		c.ExtractionStatus = constants.StatusPending
	}

	query := rebind(q.pg, `INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := q.dbtx.ExecContext(ctx, query,
		c.ID.String(), c.FileName, c.DisplayName, c.VendorName,
		dateToDB(c.StartDate), dateToDB(c.EndDate), dateToDB(c.RenewalDate),
		c.RenewalTerm, c.NoticePeriodDays, dateToDB(c.NoticeDeadline),
		string(c.ExtractionStatus), c.ExtractionConfidence, boolToDB(c.NeedsReview),
		c.ExtractionNotes, stringsToDB(c.UncertainFields), candidatesToDB(c.CandidateDates),
		c.PDFPath, now.Format(dbTimeLayout), now.Format(dbTimeLayout),
	)
	if err != nil {
		q.logger.Error("db.contract.create_failed", "id", c.ID, "error", err)
		return err
	}
	return nil
}

// UpdateContract writes all mutable fields of the record.
func (q queries) UpdateContract(ctx context.Context, c *entity.Contract) error {
	c.UpdatedAt = time.Now().UTC()

	query := rebind(q.pg, `UPDATE contracts SET
		display_name = ?, vendor_name = ?, start_date = ?, end_date = ?,
		renewal_date = ?, renewal_term = ?, notice_period_days = ?, notice_deadline = ?,
		extraction_status = ?, extraction_confidence = ?, needs_review = ?,
		extraction_notes = ?, uncertain_fields = ?, candidate_dates = ?, updated_at = ?
		WHERE id = ?`)
	res, err := q.dbtx.ExecContext(ctx, query,
		c.DisplayName, c.VendorName,
		dateToDB(c.StartDate), dateToDB(c.EndDate), dateToDB(c.RenewalDate),
		c.RenewalTerm, c.NoticePeriodDays, dateToDB(c.NoticeDeadline),
		string(c.ExtractionStatus), c.ExtractionConfidence, boolToDB(c.NeedsReview),
		c.ExtractionNotes, stringsToDB(c.UncertainFields), candidatesToDB(c.CandidateDates),
		c.UpdatedAt.Format(dbTimeLayout), c.ID.String(),
	)
	if err != nil {
		q.logger.Error("db.contract.update_failed", "id", c.ID, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// SetStatus records a terminal status without touching extracted fields.
func (q queries) SetStatus(ctx context.Context, id uuid.UUID, status constants.ExtractionStatus) error {
	query := rebind(q.pg, `UPDATE contracts SET extraction_status = ?, updated_at = ? WHERE id = ?`)
	_, err := q.dbtx.ExecContext(ctx, query,
		string(status), time.Now().UTC().Format(dbTimeLayout), id.String())
	if err != nil {
		q.logger.Error("db.contract.set_status_failed", "id", id, "status", status, "error", err)
	}
	return err
}

func (q queries) GetContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	query := rebind(q.pg, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`)
	row := q.dbtx.QueryRowContext(ctx, query, id.String())
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	return c, err
}

func (q queries) ListContracts(ctx context.Context) ([]*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts ORDER BY created_at`
	rows, err := q.dbtx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q queries) DeleteContract(ctx context.Context, id uuid.UUID) error {
	query := rebind(q.pg, `DELETE FROM contracts WHERE id = ?`)
	res, err := q.dbtx.ExecContext(ctx, query, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (q queries) DeleteAllContracts(ctx context.Context) (int64, error) {
	res, err := q.dbtx.ExecContext(ctx, `DELETE FROM contracts`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanContract(row scanner) (*entity.Contract, error) {
	var (
		c                               entity.Contract
		id, status, createdAt, updatedAt string
		startDate, endDate, renewalDate  sql.NullString
		noticeDeadline                   sql.NullString
		needsReview                      int
		uncertain, candidates            sql.NullString
	)
	err := row.Scan(
		&id, &c.FileName, &c.DisplayName, &c.VendorName,
		&startDate, &endDate, &renewalDate,
		&c.RenewalTerm, &c.NoticePeriodDays, &noticeDeadline,
		&status, &c.ExtractionConfidence, &needsReview, &c.ExtractionNotes,
		&uncertain, &candidates, &c.PDFPath, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse contract id: %w", err)
	}
	c.ExtractionStatus = constants.ExtractionStatus(status)
	c.NeedsReview = needsReview != 0
	c.StartDate = dateFromDB(startDate)
	c.EndDate = dateFromDB(endDate)
	c.RenewalDate = dateFromDB(renewalDate)
	c.NoticeDeadline = dateFromDB(noticeDeadline)
	c.UncertainFields = stringsFromDB(uncertain)
	c.CandidateDates = candidatesFromDB(candidates)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

const dbDateLayout = "2006-01-02"

func dateToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dbDateLayout)
}

func dateFromDB(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.ParseInLocation(dbDateLayout, s.String, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func boolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stringsToDB(v []string) any {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func stringsFromDB(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}

func candidatesToDB(v map[string][]time.Time) any {
	if len(v) == 0 {
		return nil
	}
	m := make(map[string][]string, len(v))
	for k, dates := range v {
		for _, d := range dates {
			m[k] = append(m[k], d.Format(dbDateLayout))
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(b)
}

func candidatesFromDB(s sql.NullString) map[string][]time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string][]string
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	out := make(map[string][]time.Time, len(m))
	for k, dates := range m {
		for _, d := range dates {
			if t, err := time.ParseInLocation(dbDateLayout, d, time.UTC); err == nil {
				out[k] = append(out[k], t)
			}
		}
	}
	return out
}
