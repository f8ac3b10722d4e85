package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
)

type profileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func copyProfile(p profile.Profile) profile.Profile {
	p.Permissions = append(make([]permission.Permission, 0, len(p.Permissions)), p.Permissions...)
	return p
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var seq int64
	p.ID, seq = repo.db.nextID()
	repo.db.profiles[p.ID] = &profileRow{seq: seq, Profile: copyProfile(p)}
	return copyProfile(p), nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.profiles[p.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	row.Name = p.Name
	row.Sector = p.Sector
	row.Permissions = copyProfile(p).Permissions
	row.UpdatedAt = p.UpdatedAt
	return copyProfile(row.Profile), nil
}

func (repo *profileRepository) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.profiles[id]; ok {
		return copyProfile(row.Profile), nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter *profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*profileRow, 0, len(repo.db.profiles))
	for _, row := range repo.db.profiles {
		if filter.Match(row.Profile) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	profiles := make([]profile.Profile, len(rows))
	for i, row := range rows {
		profiles[i] = copyProfile(row.Profile)
	}
	profile.SortByName(profiles)
	return profiles, nil
}

func (repo *profileRepository) DeleteProfile(_ context.Context, id string, policy profile.DeletePolicy) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.profiles[id]; !ok {
		return 0, profile.ErrNotFound
	}

	var bound []*userRow
	for _, row := range repo.db.users {
		if row.ProfileID == id {
			bound = append(bound, row)
		}
	}
	if len(bound) > 0 && policy != profile.PolicyCascade {
		return 0, profile.ErrInUse
	}

	for _, row := range bound {
		row.ProfileID = ""
	}
	delete(repo.db.profiles, id)
	return len(bound), nil
}
