package user

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/educonnect/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleParent  = "parent"
)

var (
	AllRoles = []string{RoleAdmin, RoleStudent, RoleParent}

	Roles = []Role{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
	}
)

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileID    string    `json:"profile_id"`
	Registration string    `json:"registration"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasPassword() bool { return len(u.PasswordHash) > 0 }

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsParent() bool  { return u.Role == RoleParent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,role"`
	ProfileID       string `json:"profile_id"`
	Registration    string `json:"registration"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
	nu.ProfileID = core.CleanString(nu.ProfileID)
	nu.Registration = core.CleanString(nu.Registration)

	if err := svc.validator.Struct(nu); err != nil {
		return err
	}
	return svc.checkReferences(ctx, nu.Email, nu.ProfileID)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are left unchanged; ProfileID and Registration pointing to "" clear the value.
type UpdateUser struct {
	Name            string  `json:"name"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Role            string  `json:"role" validate:"omitempty,role"`
	ProfileID       *string `json:"profile_id"`
	Registration    *string `json:"registration"`
	IsActive        *bool   `json:"is_active"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}

	if uu.ProfileID != nil {
		pid := core.CleanString(*uu.ProfileID)
		uu.ProfileID = &pid
	}
	if uu.Registration != nil {
		reg := core.CleanString(*uu.Registration)
		uu.Registration = &reg
	}

	if err := svc.validator.Struct(uu); err != nil {
		return err
	}

	var pid string
	if uu.ProfileID != nil && *uu.ProfileID != origUsr.ProfileID {
		pid = *uu.ProfileID
	}
	return svc.checkReferences(ctx, uu.Email, pid, origUsr)
}

// apply copies the set fields of uu onto usr.
func (uu *UpdateUser) apply(usr *User) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.ProfileID != nil {
		usr.ProfileID = *uu.ProfileID
	}
	if uu.Registration != nil {
		usr.Registration = *uu.Registration
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(v *core.Validator) error { return v.Struct(rp) }

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search    string   `query:"search"`
	Roles     []string `query:"role"`
	ProfileID string   `query:"profile_id"`
	IsActive  *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Roles == nil && qf.ProfileID == "" && qf.IsActive == nil)
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ProfileID = core.CleanString(qf.ProfileID)
	roles := make([]string, 0, len(qf.Roles))
	for _, r := range qf.Roles {
		// ?role=student,parent and ?role=student&role=parent are equivalent
		for _, part := range strings.Split(r, ",") {
			if part = core.CleanString(part, true /* lower */); part != "" {
				roles = append(roles, part)
			}
		}
	}
	if len(roles) > 0 {
		qf.Roles = roles
	} else {
		qf.Roles = nil
	}
}

// Match applies AND operation on available QueryFilter fields.
// Search does a case-insensitive match on one of User.Name, User.Email or User.Registration.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(usr.Email, s) ||
			strings.Contains(strings.ToLower(usr.Registration), s)) {
			return false
		}
	}
	if qf.Roles != nil {
		var found bool
		for _, r := range qf.Roles {
			if usr.Role == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.ProfileID != "" && usr.ProfileID != qf.ProfileID {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	return true
}
