package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educonnect/core/document"
)

const requestTable = "document_request"

var requestColumns = []string{
	"id", "requester_id", "requester_name", "type", "urgency", "status", "processed_by", "created_at", "updated_at",
}

type requestRow struct {
	ID            string      `db:"id"`
	RequesterID   string      `db:"requester_id"`
	RequesterName string      `db:"requester_name"`
	Type          string      `db:"type"`
	Urgency       string      `db:"urgency"`
	Status        string      `db:"status"`
	ProcessedBy   null.String `db:"processed_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func newRequestRow(r document.Request) requestRow {
	return requestRow{
		ID:            r.ID,
		RequesterID:   r.RequesterID,
		RequesterName: r.RequesterName,
		Type:          r.Type,
		Urgency:       string(r.Urgency),
		Status:        string(r.Status),
		ProcessedBy:   null.NewString(r.ProcessedBy, r.ProcessedBy != ""),
		CreatedAt:     dbTime(r.CreatedAt),
		UpdatedAt:     dbTime(r.UpdatedAt),
	}
}

func (r requestRow) request() document.Request {
	return document.Request{
		ID:            r.ID,
		RequesterID:   r.RequesterID,
		RequesterName: r.RequesterName,
		Type:          r.Type,
		Urgency:       document.Urgency(r.Urgency),
		Status:        document.Status(r.Status),
		ProcessedBy:   r.ProcessedBy.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateRequest(ctx context.Context, r document.Request) (document.Request, error) {
	if !validID(r.RequesterID) {
		return document.Request{}, errors.New("invalid requester ID")
	}
	r.ID = uuid.NewString()
	row := newRequestRow(r)
	_, err := exec(ctx, repo.db, psql.Insert(requestTable).
		Columns(requestColumns...).
		Values(row.ID, row.RequesterID, row.RequesterName, row.Type, row.Urgency, row.Status, row.ProcessedBy, row.CreatedAt, row.UpdatedAt))
	if err != nil {
		return document.Request{}, errors.Wrap(err, "inserting document request")
	}
	return row.request(), nil
}

func (repo *documentRepository) get(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (document.Request, error) {
	if !validID(id) {
		return document.Request{}, document.ErrNotFound
	}
	b := psql.Select(requestColumns...).From(requestTable).Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return document.Request{}, errors.Wrap(err, "building query")
	}
	var row requestRow
	if err = sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return document.Request{}, document.ErrNotFound
		}
		return document.Request{}, errors.Wrap(err, "getting document request")
	}
	return row.request(), nil
}

func (repo *documentRepository) GetRequest(ctx context.Context, id string) (document.Request, error) {
	return repo.get(ctx, repo.db, id, false)
}

func (repo *documentRepository) QueryRequests(ctx context.Context, filter *document.QueryFilter) ([]document.Request, error) {
	b := psql.Select(requestColumns...).From(requestTable).OrderBy("created_at DESC", "id DESC")
	if !filter.IsEmpty() {
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": string(filter.Status)})
		}
		if filter.RequesterID != "" {
			if !validID(filter.RequesterID) {
				return []document.Request{}, nil
			}
			b = b.Where(sq.Eq{"requester_id": filter.RequesterID})
		}
	}

	var rows []requestRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying document requests")
	}
	reqs := make([]document.Request, len(rows))
	for i, row := range rows {
		reqs[i] = row.request()
	}
	return reqs, nil
}

func (repo *documentRepository) UpdateRequestStatus(ctx context.Context, r document.Request, from document.Status) (document.Request, error) {
	var updated document.Request
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stored, err := repo.get(ctx, tx, r.ID, true)
		if err != nil {
			return err
		}
		if stored.Status != from {
			return document.ErrStaleStatus
		}

		row := newRequestRow(r)
		if _, err = exec(ctx, tx, psql.Update(requestTable).
			Set("status", row.Status).
			Set("processed_by", row.ProcessedBy).
			Set("updated_at", row.UpdatedAt).
			Where(sq.Eq{"id": row.ID})); err != nil {
			return errors.Wrap(err, "updating document request")
		}

		stored.Status = r.Status
		stored.ProcessedBy = r.ProcessedBy
		stored.UpdatedAt = row.UpdatedAt
		updated = stored
		return nil
	})
	if err != nil {
		return document.Request{}, err
	}
	return updated, nil
}

func (repo *documentRepository) CountRequestsByStatus(ctx context.Context) (map[document.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := selectRows(ctx, repo.db, &rows, psql.Select("status", "COUNT(*) AS count").From(requestTable).GroupBy("status")); err != nil {
		return nil, errors.Wrap(err, "counting document requests")
	}
	counts := make(map[document.Status]int, len(rows))
	for _, row := range rows {
		counts[document.Status(row.Status)] = row.Count
	}
	return counts, nil
}
