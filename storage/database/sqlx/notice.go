package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/notice"
)

const noticeTable = "notice"

var noticeColumns = []string{"id", "title", "content", "type", "author_id", "author_name", "created_at"}

type noticeRow struct {
	ID         string    `db:"id"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	Type       string    `db:"type"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r noticeRow) notice() notice.Notice {
	return notice.Notice{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Type:       notice.Type(r.Type),
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type noticeRepository struct {
	db *sqlx.DB
}

func NewNoticeRepository(db *sqlx.DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	if !validID(n.AuthorID) {
		return notice.Notice{}, errors.New("invalid author ID")
	}
	n.ID = uuid.NewString()
	n.CreatedAt = dbTime(n.CreatedAt)
	_, err := exec(ctx, repo.db, psql.Insert(noticeTable).
		Columns(noticeColumns...).
		Values(n.ID, n.Title, n.Content, string(n.Type), n.AuthorID, n.AuthorName, n.CreatedAt))
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, filter *notice.QueryFilter) ([]notice.Notice, error) {
	b := psql.Select(noticeColumns...).From(noticeTable).OrderBy("created_at DESC", "id DESC")
	if !filter.IsEmpty() {
		b = b.Where(sq.Eq{"type": string(filter.Type)})
	}

	var rows []noticeRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying notices")
	}
	notices := make([]notice.Notice, len(rows))
	for i, row := range rows {
		notices[i] = row.notice()
	}
	return notices, nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	if !validID(id) {
		return notice.ErrNotFound
	}
	n, err := exec(ctx, repo.db, psql.Delete(noticeTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	if n == 0 {
		return notice.ErrNotFound
	}
	return nil
}
