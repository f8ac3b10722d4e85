// Package access decides what a user may do.
//
// Two orthogonal axes are checked: the user's role gates which application areas are
// reachable at all, and the permissions of the user's bound access profile gate the actions
// within an area. A role never grants a permission.
package access

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/user"
)

type Area string

// Areas
const (
	AreaAdminDashboard Area = "admin-dashboard"
	AreaAdminReports   Area = "admin-reports"
	AreaDashboard      Area = "dashboard"
	AreaGrades         Area = "grades"
	AreaNotices        Area = "notices"
	AreaRequests       Area = "requests"
)

var (
	roleAreas = map[string][]Area{
		user.RoleAdmin:   {AreaAdminDashboard, AreaAdminReports},
		user.RoleStudent: {AreaDashboard, AreaGrades, AreaNotices, AreaRequests},
		user.RoleParent:  {AreaDashboard, AreaGrades, AreaNotices, AreaRequests},
	}

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educonnect_authorization_decisions_total",
		Help: "Number of authorization decisions, by permission and outcome.",
	}, []string{"permission", "outcome"})
)

// Areas returns the application areas reachable by role, nil for an unknown role.
func Areas(role string) []Area {
	areas := roleAreas[role]
	if areas == nil {
		return nil
	}
	res := make([]Area, len(areas))
	copy(res, areas)
	return res
}

// CanEnter reports whether role may reach area.
func CanEnter(role string, area Area) bool {
	for _, a := range roleAreas[role] {
		if a == area {
			return true
		}
	}
	return false
}

// PermissionResolver resolves the permissions granted by an access profile.
// An empty or unknown profile ID resolves to an empty set.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, profileID string) (permission.Set, error)
}

type Authorizer struct {
	profiles PermissionResolver
}

func NewAuthorizer(profiles PermissionResolver) *Authorizer {
	return &Authorizer{profiles: profiles}
}

// EffectivePermissions returns the permissions of the user's bound profile.
// Inactive users have none.
func (a *Authorizer) EffectivePermissions(ctx context.Context, usr user.User) (permission.Set, error) {
	if !usr.IsActive || usr.ProfileID == "" {
		return permission.NewSet(), nil
	}
	perms, err := a.profiles.EffectivePermissions(ctx, usr.ProfileID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving effective permissions")
	}
	return perms, nil
}

// Authorize reports whether usr holds perm through its bound access profile.
func (a *Authorizer) Authorize(ctx context.Context, usr user.User, perm permission.Permission) (bool, error) {
	perms, err := a.EffectivePermissions(ctx, usr)
	if err != nil {
		return false, err
	}
	allowed := perms.Has(perm)

	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	decisionsTotal.WithLabelValues(string(perm), outcome).Inc()
	return allowed, nil
}
