package profile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/permission"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("access profile")
	ErrInUse    = core.NewConflictError("access profile is still assigned to users")
)

// DeletePolicy decides what happens to the users bound to a deleted Profile.
type DeletePolicy string

const (
	// PolicyReject refuses to delete a Profile bound to any user.
	PolicyReject DeletePolicy = "reject"
	// PolicyCascade unbinds the users and deletes the Profile in one atomic operation.
	PolicyCascade DeletePolicy = "cascade"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(core.CleanString(s))); p {
	case PolicyReject, PolicyCascade:
		return p, nil
	case "":
		return PolicyReject, nil
	default:
		return "", errors.Errorf("unknown profile delete policy %q", s)
	}
}

type (
	Repository interface {
		// CreateProfile assigns a fresh, never reused ID to p and stores it.
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		GetProfile(ctx context.Context, id string) (Profile, error)
		// QueryProfiles returns the profiles matching filter, ordered by name.
		QueryProfiles(ctx context.Context, filter *QueryFilter) ([]Profile, error)
		// DeleteProfile deletes the profile according to policy and returns the number of unbound users.
		DeleteProfile(ctx context.Context, id string, policy DeletePolicy) (int, error)
	}

	Service struct {
		repo      Repository
		validator *core.Validator
		policy    DeletePolicy
	}
)

func NewService(repo Repository, v *core.Validator, policy DeletePolicy) *Service {
	InitValidators(v)
	if policy == "" {
		policy = PolicyReject
	}
	return &Service{
		repo:      repo,
		validator: v,
		policy:    policy,
	}
}

func (svc *Service) Policy() DeletePolicy { return svc.policy }

func (svc *Service) Create(ctx context.Context, np NewProfile) (Profile, error) {
	if err := np.Validate(svc.validator); err != nil {
		return Profile{}, err
	}
	now := time.Now().UTC()
	p := Profile{
		Name:        np.Name,
		Sector:      np.Sector,
		Permissions: permission.Normalize(np.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProfile(ctx, p)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if err = up.Validate(svc.validator); err != nil {
		return Profile{}, err
	}

	perms := permission.Normalize(up.Permissions)
	if p.sameContent(up.Name, up.Sector, perms) {
		return p, nil
	}
	p.Name = up.Name
	p.Sector = up.Sector
	p.Permissions = perms
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, p)
}

// Delete deletes the Profile according to the service's DeletePolicy.
// It returns the number of users that got unbound from it.
func (svc *Service) Delete(ctx context.Context, id string) (int, error) {
	return svc.repo.DeleteProfile(ctx, id, svc.policy)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Profile, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryProfiles(ctx, filter)
}

// EffectivePermissions returns the permissions granted by the Profile identified by id.
// An empty id or an unknown profile grant nothing.
func (svc *Service) EffectivePermissions(ctx context.Context, id string) (permission.Set, error) {
	if id == "" {
		return permission.NewSet(), nil
	}
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return permission.NewSet(), nil
		}
		return nil, errors.Wrap(err, "getting access profile")
	}
	return permission.NewSet(p.Permissions...), nil
}

// Ensure returns the Profile named np.Name (case-insensitive), creating it if missing.
func (svc *Service) Ensure(ctx context.Context, np NewProfile) (Profile, error) {
	if err := np.Validate(svc.validator); err != nil {
		return Profile{}, err
	}
	profiles, err := svc.repo.QueryProfiles(ctx, &QueryFilter{Search: np.Name})
	if err != nil {
		return Profile{}, errors.Wrap(err, "querying access profiles")
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Name, np.Name) {
			return p, nil
		}
	}
	return svc.Create(ctx, np)
}

// SortByName sorts profiles by name, then by creation.
func SortByName(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		ni, nj := strings.ToLower(profiles[i].Name), strings.ToLower(profiles[j].Name)
		if ni != nj {
			return ni < nj
		}
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
}
