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

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

const userTable = `"user"`

var userColumns = []string{
	"id", "name", "email", "role", "profile_id", "registration", "is_active",
	"password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	ProfileID    null.String `db:"profile_id"`
	Registration null.String `db:"registration"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		ProfileID:    null.NewString(usr.ProfileID, usr.ProfileID != ""),
		Registration: null.NewString(usr.Registration, usr.Registration != ""),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:    dbTime(usr.CreatedAt),
		UpdatedAt:    dbTime(usr.UpdatedAt),
		LastLogin:    null.NewTime(dbTime(usr.LastLogin), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Email, r.Role, r.ProfileID, r.Registration, r.IsActive,
		r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		ProfileID:    r.ProfileID.String,
		Registration: r.Registration.String,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.PasswordHash.Valid {
		usr.PasswordHash = r.PasswordHash.Bytes
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	b := psql.Select("COUNT(*)").From(userTable).Where("LOWER(email) = LOWER(?)", email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			if validID(usr.ID) {
				ids = append(ids, usr.ID)
			}
		}
		if len(ids) > 0 {
			b = b.Where(sq.NotEq{"id": ids})
		}
	}
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "counting users by email")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	row := newUserRow(usr)
	if _, err := exec(ctx, repo.db, psql.Insert(userTable).Columns(userColumns...).Values(row.values()...)); err != nil {
		switch pqErrCode(err) {
		case uniqueViolation:
			return user.User{}, user.ErrEmailExists
		case foreignKeyViolation:
			return user.User{}, user.ErrUnknownProfile
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From(userTable)
	if !filter.IsEmpty() {
		if filter.Search != "" {
			s := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"name": s},
				sq.ILike{"email": s},
				sq.ILike{"registration": s},
			})
		}
		if filter.Roles != nil {
			b = b.Where(sq.Eq{"role": filter.Roles})
		}
		if filter.ProfileID != "" {
			if !validID(filter.ProfileID) {
				return []user.User{}, nil
			}
			b = b.Where(sq.Eq{"profile_id": filter.ProfileID})
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	b = b.OrderBy("created_at ASC", "id ASC")

	var rows []userRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.user()
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From(userTable)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		b = b.Where("LOWER(email) = LOWER(?)", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	query, args, err := b.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	row := newUserRow(usr)
	n, err := exec(ctx, repo.db, psql.Update(userTable).
		Set("name", row.Name).
		Set("email", row.Email).
		Set("role", row.Role).
		Set("profile_id", row.ProfileID).
		Set("registration", row.Registration).
		Set("is_active", row.IsActive).
		Set("password_hash", row.PasswordHash).
		Set("updated_at", row.UpdatedAt).
		Set("last_login", row.LastLogin).
		Where(sq.Eq{"id": row.ID}))
	if err != nil {
		switch pqErrCode(err) {
		case uniqueViolation:
			return user.User{}, user.ErrEmailExists
		case foreignKeyViolation:
			// the profile got deleted in the meantime
			return user.User{}, user.ErrUnknownProfile
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	n, err := exec(ctx, repo.db, psql.Update(userTable).Set("last_login", at).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// DeleteUsersByID deletes all the users or none of them. Their document requests are kept.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	uniq := make(map[string]bool, len(ids))
	idList := make([]string, 0, len(ids))
	for _, id := range ids {
		if !validID(id) {
			return 0, user.ErrNotFound
		}
		if !uniq[id] {
			uniq[id] = true
			idList = append(idList, id)
		}
	}

	var deleted int64
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, psql.Delete(userTable).Where(sq.Eq{"id": idList}))
		if err != nil {
			return errors.Wrap(err, "deleting users")
		}
		if n != int64(len(idList)) {
			return user.ErrNotFound // rolled back
		}
		deleted = n
		return nil
	})
	return int(deleted), err
}

func (repo *userRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	if err := selectRows(ctx, repo.db, &rows, psql.Select("role", "COUNT(*) AS count").From(userTable).GroupBy("role")); err != nil {
		return nil, errors.Wrap(err, "counting users")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
