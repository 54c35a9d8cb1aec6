package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/repositories"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

const casesTable = "cases"

const createCasesTable = `CREATE TABLE IF NOT EXISTS cases (
	id          TEXT PRIMARY KEY,
	uploaded_at TIMESTAMPTZ,
	data        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_uploaded_at ON cases (uploaded_at DESC)`

// CaseAdapter implements the CaseRepository interface over a single jsonb
// column; the record is always written whole.
type CaseAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewCaseAdapter creates a new case adapter
func NewCaseAdapter(client *postgres.Client, metrics *observability.Metrics) *CaseAdapter {
	return &CaseAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

var _ repositories.CaseRepository = (*CaseAdapter)(nil)

// InitSchema creates the cases table when missing
func (a *CaseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, createCasesTable); err != nil {
		return apperrors.NewInternalError("failed to create cases table", err)
	}
	return nil
}

// Create inserts a new case
func (a *CaseAdapter) Create(ctx context.Context, c *entities.Case) error {
	if c == nil {
		return apperrors.NewInternalError("case is nil", fmt.Errorf("case is nil"))
	}
	defer a.observe(ctx, "insert", time.Now())

	record, err := caseRecord(c)
	if err != nil {
		return err
	}

	query, args, err := a.db.Insert(casesTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build case insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create case", err)
	}
	return nil
}

// GetByID retrieves a case by ID
func (a *CaseAdapter) GetByID(ctx context.Context, id string) (*entities.Case, error) {
	defer a.observe(ctx, "select", time.Now())

	query, args, err := a.db.From(casesTable).
		Select("data").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build case select query", err)
	}

	var data []byte
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Document not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get case", err)
	}

	return decodeCase(data)
}

// List retrieves every case, newest upload first
func (a *CaseAdapter) List(ctx context.Context) ([]*entities.Case, error) {
	defer a.observe(ctx, "list", time.Now())

	query, args, err := a.db.From(casesTable).
		Select("data").
		Order(goqu.C("uploaded_at").Desc().NullsLast(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build case list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list cases", err)
	}
	defer rows.Close()

	cases := make([]*entities.Case, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, apperrors.NewInternalError("failed to scan case", err)
		}
		c, err := decodeCase(data)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate cases", err)
	}

	return cases, nil
}

// Replace overwrites the stored record
func (a *CaseAdapter) Replace(ctx context.Context, c *entities.Case) error {
	if c == nil {
		return apperrors.NewInternalError("case is nil", fmt.Errorf("case is nil"))
	}
	defer a.observe(ctx, "update", time.Now())

	record, err := caseRecord(c)
	if err != nil {
		return err
	}
	delete(record, "id")

	query, args, err := a.db.Update(casesTable).
		Set(record).
		Where(goqu.Ex{"id": c.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build case update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update case", err)
	}
	return requireAffected(result, "Document not found")
}

// Delete removes a case
func (a *CaseAdapter) Delete(ctx context.Context, id string) error {
	defer a.observe(ctx, "delete", time.Now())

	query, args, err := a.db.Delete(casesTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build case delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete case", err)
	}
	return requireAffected(result, "Document not found")
}

func (a *CaseAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

func caseRecord(c *entities.Case) (goqu.Record, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode case", err)
	}

	var uploadedAt *time.Time
	if t := c.UploadedTime(); !t.IsZero() {
		uploadedAt = &t
	}

	return goqu.Record{
		"id":          c.ID,
		"uploaded_at": uploadedAt,
		"data":        string(data),
	}, nil
}

func decodeCase(data []byte) (*entities.Case, error) {
	var c entities.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperrors.NewInternalError("failed to decode case", err)
	}
	return &c, nil
}

func requireAffected(result sql.Result, notFound string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}
