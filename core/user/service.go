package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/profile"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user")
	ErrEmailExists = errors.New("a user with this email already exists")
	// ErrUnknownProfile is returned when a user would be bound to a missing access profile.
	ErrUnknownProfile = core.NewValidationError(
		errors.New("access profile not found"),
		core.FieldError{Field: "profile_id", Error: "access profile not found"},
	)
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a user, other than excludedUsers, holds email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		// CreateUser assigns a fresh ID to usr and stores it. Same ProfileID check as UpdateUser.
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, ordered by creation unless ordering is set.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// UpdateUser stores usr. It fails with ErrUnknownProfile if usr.ProfileID is set and unknown at write time.
		UpdateUser(ctx context.Context, usr User) (User, error)
		// UpdateLastLogin only touches the last login of the user identified by id.
		UpdateLastLogin(ctx context.Context, id string, at time.Time) error
		// DeleteUsersByID deletes all the users or none of them: ErrNotFound if any ID is unknown.
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
		CountUsersByRole(ctx context.Context) (map[string]int, error)
	}

	// ProfileGetter resolves the access profile a user gets bound to.
	ProfileGetter interface {
		GetByID(ctx context.Context, id string) (profile.Profile, error)
	}

	Service struct {
		repo      Repository
		profiles  ProfileGetter
		validator *core.Validator
		mailSvc   core.EmailService
		tokens    tokenGenerator
	}
)

func NewService(repo Repository, profiles ProfileGetter, v *core.Validator, mailSvc core.EmailService, conf *core.Config) *Service {
	InitValidators(v)
	return &Service{
		repo:      repo,
		profiles:  profiles,
		validator: v,
		mailSvc:   mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

// checkReferences checks that email is not held by another user and that profileID, if any, exists.
func (svc *Service) checkReferences(ctx context.Context, email, profileID string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	if profileID != "" {
		if _, err := svc.profiles.GetByID(ctx, profileID); err != nil {
			if core.IsNotFound(err) {
				return ErrUnknownProfile
			}
			return errors.Wrap(err, "getting access profile")
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(ctx, svc); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         nu.Role,
		ProfileID:    nu.ProfileID,
		Registration: nu.Registration,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nu.Password != "" {
		if err := usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(ctx, usr, svc); err != nil {
		return User{}, err
	}

	uu.apply(&usr)
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete deletes the users identified by ids. Nothing is deleted if any of them is unknown.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, core.FilterOrderings(ordering, "name", "email", "role", "is_active", "created_at"))
}

// CountByRole returns the number of users per role. Every role is present in the result.
func (svc *Service) CountByRole(ctx context.Context) (map[string]int, error) {
	counts, err := svc.repo.CountUsersByRole(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting users")
	}
	res := make(map[string]int, len(AllRoles))
	for _, role := range AllRoles {
		res[role] = counts[role]
	}
	return res, nil
}

// SetLastLogin records a login of usr now. Nothing else of usr is written.
func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	at := time.Now().UTC()
	if err := svc.repo.UpdateLastLogin(ctx, usr.ID, at); err != nil {
		return User{}, err
	}
	usr.LastLogin = at
	return usr, nil
}

// SetPassword sets the password of the User, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a password reset link to the active User holding email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password after checking the reset token.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := rp.Validate(svc.validator); err != nil {
		return err
	}

	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidErr
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	_, err = svc.SetPassword(ctx, usr, rp.Password)
	return err
}
