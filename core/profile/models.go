package profile

import (
	"strings"
	"time"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/permission"
)

// Profile is a named, sector-tagged bundle of permissions assignable to users.
type Profile struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Sector      string                  `json:"sector"`
	Permissions []permission.Permission `json:"permissions"`
	CreatedAt   time.Time               `json:"created_at"` // UTC
	UpdatedAt   time.Time               `json:"updated_at"` // UTC
}

// Has reports whether p is granted by the profile.
func (p Profile) Has(perm permission.Permission) bool {
	for _, pp := range p.Permissions {
		if pp == perm {
			return true
		}
	}
	return false
}

func (p Profile) sameContent(name, sector string, perms []permission.Permission) bool {
	if p.Name != name || p.Sector != sector || len(p.Permissions) != len(perms) {
		return false
	}
	for i := range perms {
		if p.Permissions[i] != perms[i] {
			return false
		}
	}
	return true
}

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	Name        string                  `json:"name" validate:"required"`
	Sector      string                  `json:"sector" validate:"required"`
	Permissions []permission.Permission `json:"permissions" validate:"permissions"`
}

func (np *NewProfile) Validate(v *core.Validator) error {
	np.Name = core.CleanString(np.Name)
	np.Sector = core.CleanString(np.Sector)
	return v.Struct(np)
}

// UpdateProfile replaces the name, sector and permissions of an existing Profile.
type UpdateProfile struct {
	Name        string                  `json:"name" validate:"required"`
	Sector      string                  `json:"sector" validate:"required"`
	Permissions []permission.Permission `json:"permissions" validate:"permissions"`
}

func (up *UpdateProfile) Validate(v *core.Validator) error {
	up.Name = core.CleanString(up.Name)
	up.Sector = core.CleanString(up.Sector)
	return v.Struct(up)
}

type QueryFilter struct {
	Search string `query:"search"`
	Sector string `query:"sector"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Sector == "")
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Sector = core.CleanString(qf.Sector)
}

// Match applies the filter to p: Search is a case-insensitive match on Name,
// Sector a case-insensitive equality.
func (qf *QueryFilter) Match(p Profile) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(qf.Search)) {
		return false
	}
	if qf.Sector != "" && !strings.EqualFold(p.Sector, qf.Sector) {
		return false
	}
	return true
}
