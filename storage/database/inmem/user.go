package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	if usr.PasswordHash != nil {
		usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	}
	return usr
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, row := range repo.db.users {
		if strings.EqualFold(row.Email, email) && !excluded[row.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.profileExists(usr.ProfileID) {
		return user.User{}, user.ErrUnknownProfile
	}
	var seq int64
	usr.ID, seq = repo.db.nextID()
	repo.db.users[usr.ID] = &userRow{seq: seq, User: copyUser(usr)}
	return copyUser(usr), nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*userRow, 0, len(repo.db.users))
	for _, row := range repo.db.users {
		if filter.Match(row.User) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(rows, func(i, j int) bool {
			c := compareUsers(rows[i].User, rows[j].User, ord.Field)
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		})
	}

	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = copyUser(row.User)
	}
	return users, nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "is_active":
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case b.IsActive:
			return -1
		default:
			return 1
		}
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if row, ok := repo.db.users[filter.ID]; ok {
			return copyUser(row.User), nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, row := range repo.db.users {
			if strings.EqualFold(row.Email, filter.Email) {
				return copyUser(row.User), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if !repo.profileExists(usr.ProfileID) { // deleted since usr was read
		return user.User{}, user.ErrUnknownProfile
	}
	usr.CreatedAt = row.CreatedAt
	row.User = copyUser(usr)
	return copyUser(usr), nil
}

func (repo *userRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	row.LastLogin = at
	return nil
}

// profileExists must be called with the lock held.
func (repo *userRepository) profileExists(id string) bool {
	if id == "" {
		return true
	}
	_, ok := repo.db.profiles[id]
	return ok
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			return 0, user.ErrNotFound
		}
	}
	deleted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !deleted[id] {
			delete(repo.db.users, id)
			deleted[id] = true
		}
	}
	return len(deleted), nil
}

func (repo *userRepository) CountUsersByRole(_ context.Context) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, row := range repo.db.users {
		counts[row.Role]++
	}
	return counts, nil
}
