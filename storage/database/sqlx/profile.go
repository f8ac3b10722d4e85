package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
)

const profileTable = "access_profile"

var profileColumns = []string{"id", "name", "sector", "permissions", "created_at", "updated_at"}

type profileRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Sector      string         `db:"sector"`
	Permissions pq.StringArray `db:"permissions"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func newProfileRow(p profile.Profile) profileRow {
	perms := make(pq.StringArray, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = string(perm)
	}
	return profileRow{
		ID:          p.ID,
		Name:        p.Name,
		Sector:      p.Sector,
		Permissions: perms,
		CreatedAt:   dbTime(p.CreatedAt),
		UpdatedAt:   dbTime(p.UpdatedAt),
	}
}

func (r profileRow) profile() profile.Profile {
	perms := make([]permission.Permission, len(r.Permissions))
	for i, perm := range r.Permissions {
		perms[i] = permission.Permission(perm)
	}
	return profile.Profile{
		ID:          r.ID,
		Name:        r.Name,
		Sector:      r.Sector,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	p.ID = uuid.NewString()
	row := newProfileRow(p)
	_, err := exec(ctx, repo.db, psql.Insert(profileTable).
		Columns(profileColumns...).
		Values(row.ID, row.Name, row.Sector, row.Permissions, row.CreatedAt, row.UpdatedAt))
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "inserting access profile")
	}
	return row.profile(), nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if !validID(p.ID) {
		return profile.Profile{}, profile.ErrNotFound
	}
	row := newProfileRow(p)
	n, err := exec(ctx, repo.db, psql.Update(profileTable).
		Set("name", row.Name).
		Set("sector", row.Sector).
		Set("permissions", row.Permissions).
		Set("updated_at", row.UpdatedAt).
		Where(sq.Eq{"id": row.ID}))
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating access profile")
	}
	if n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return repo.GetProfile(ctx, p.ID)
}

func (repo *profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	if !validID(id) {
		return profile.Profile{}, profile.ErrNotFound
	}
	query, args, err := psql.Select(profileColumns...).From(profileTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "building query")
	}
	var row profileRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, errors.Wrap(err, "getting access profile")
	}
	return row.profile(), nil
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter) ([]profile.Profile, error) {
	b := psql.Select(profileColumns...).From(profileTable).OrderBy("LOWER(name) ASC", "created_at ASC")
	if !filter.IsEmpty() {
		if filter.Search != "" {
			b = b.Where(sq.ILike{"name": "%" + filter.Search + "%"})
		}
		if filter.Sector != "" {
			b = b.Where("LOWER(sector) = LOWER(?)", filter.Sector)
		}
	}

	var rows []profileRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying access profiles")
	}
	profiles := make([]profile.Profile, len(rows))
	for i, row := range rows {
		profiles[i] = row.profile()
	}
	return profiles, nil
}

// DeleteProfile locks the profile row so that no user can get bound to it while it is being deleted.
func (repo *profileRepository) DeleteProfile(ctx context.Context, id string, policy profile.DeletePolicy) (int, error) {
	if !validID(id) {
		return 0, profile.ErrNotFound
	}

	var unbound int
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var found bool
		if err := tx.GetContext(ctx, &found, "SELECT true FROM access_profile WHERE id = $1 FOR UPDATE", id); err != nil {
			if err == sql.ErrNoRows {
				return profile.ErrNotFound
			}
			return errors.Wrap(err, "locking access profile")
		}

		if policy == profile.PolicyCascade {
			n, err := exec(ctx, tx, psql.Update(`"user"`).
				Set("profile_id", nil).
				Set("updated_at", dbTime(time.Now())).
				Where(sq.Eq{"profile_id": id}))
			if err != nil {
				return errors.Wrap(err, "unbinding users")
			}
			unbound = int(n)
		} else {
			var refs int
			if err := tx.GetContext(ctx, &refs, `SELECT COUNT(*) FROM "user" WHERE profile_id = $1`, id); err != nil {
				return errors.Wrap(err, "counting bound users")
			}
			if refs > 0 {
				return profile.ErrInUse
			}
		}

		if _, err := exec(ctx, tx, psql.Delete(profileTable).Where(sq.Eq{"id": id})); err != nil {
			if pqErrCode(err) == foreignKeyViolation {
				return profile.ErrInUse
			}
			return errors.Wrap(err, "deleting access profile")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return unbound, nil
}
