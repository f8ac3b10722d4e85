package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/services/email"
	"github.com/trezcool/educonnect/storage/database/inmem"
	"github.com/trezcool/educonnect/tests"
)

const strongPwd = "Boletim#2024"

type fixture struct {
	svc      *user.Service
	repo     user.Repository
	profRepo profile.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	require.NoError(t, user.LoadCommonPasswords())

	conf := testutil.Config()
	db := inmemdb.NewDB()
	v := core.NewValidator()
	profRepo := inmemdb.NewProfileRepository(db)
	repo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.EmailTemplates(t), testutil.NewLogger())
	return fixture{
		svc:      user.NewService(repo, profile.NewService(profRepo, v, profile.PolicyReject), v, mailSvc, conf),
		repo:     repo,
		profRepo: profRepo,
		mailSvc:  mailSvc,
	}
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T: %v", err, err)
	return vErr.Fields
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	sec := testutil.CreateProfile(t, f.profRepo, "Secretaria", "Administrativo", permission.ManageUsers)
	testutil.CreateUser(t, f.repo, "Existing", "taken@escola.br", "", user.RoleParent, "", true)

	tests := []struct {
		name       string
		nu         user.NewUser
		want       user.User
		wantFields []core.FieldError
	}{
		{
			name: "admin with profile and password",
			nu: user.NewUser{
				Name:            " Ana Souza ",
				Email:           "Ana@Escola.BR",
				Role:            user.RoleAdmin,
				ProfileID:       sec.ID,
				Password:        strongPwd,
				PasswordConfirm: strongPwd,
			},
			want: user.User{Name: "Ana Souza", Email: "ana@escola.br", Role: user.RoleAdmin, ProfileID: sec.ID, IsActive: true},
		},
		{
			name: "student by default",
			nu:   user.NewUser{Name: "João", Email: "joao@escola.br", Registration: "2024001"},
			want: user.User{Name: "João", Email: "joao@escola.br", Role: user.RoleStudent, Registration: "2024001", IsActive: true},
		},
		{
			name:       "missing fields",
			nu:         user.NewUser{},
			wantFields: []core.FieldError{{Field: "name", Error: "this field is required"}, {Field: "email", Error: "this field is required"}},
		},
		{
			name:       "invalid role",
			nu:         user.NewUser{Name: "X", Email: "x@escola.br", Role: "teacher"},
			wantFields: []core.FieldError{{Field: "role", Error: "invalid role"}},
		},
		{
			name:       "email taken, case-insensitive",
			nu:         user.NewUser{Name: "X", Email: "TAKEN@escola.br"},
			wantFields: []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}},
		},
		{
			name:       "unknown profile",
			nu:         user.NewUser{Name: "X", Email: "x@escola.br", ProfileID: "nope"},
			wantFields: []core.FieldError{{Field: "profile_id", Error: "access profile not found"}},
		},
		{
			name:       "password mismatch",
			nu:         user.NewUser{Name: "X", Email: "x@escola.br", Password: strongPwd, PasswordConfirm: "other"},
			wantFields: []core.FieldError{{Field: "password_confirm", Error: "password_confirm must be equal to Password"}},
		},
		{
			name:       "password too short",
			nu:         user.NewUser{Name: "X", Email: "x@escola.br", Password: "Ab1!", PasswordConfirm: "Ab1!"},
			wantFields: []core.FieldError{{Field: "password", Error: "password must contain at least 8 characters"}},
		},
		{
			name:       "password too common",
			nu:         user.NewUser{Name: "X", Email: "x@escola.br", Password: "P@ssw0rd1", PasswordConfirm: "P@ssw0rd1"},
			wantFields: []core.FieldError{{Field: "password", Error: "password is too common"}},
		},
		{
			name:       "password similar to email",
			nu:         user.NewUser{Name: "X", Email: "mariana.lima@escola.br", Password: "Mariana.Lima1", PasswordConfirm: "Mariana.Lima1"},
			wantFields: []core.FieldError{{Field: "password", Error: "password cannot be similar to user attributes"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Create(ctx, tt.nu)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldErrors(t, err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Email, got.Email)
			assert.Equal(t, tt.want.Role, got.Role)
			assert.Equal(t, tt.want.ProfileID, got.ProfileID)
			assert.Equal(t, tt.want.Registration, got.Registration)
			assert.Equal(t, tt.want.IsActive, got.IsActive)
			if tt.nu.Password != "" {
				assert.NoError(t, got.CheckPassword(tt.nu.Password))
			} else {
				assert.False(t, got.HasPassword())
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	sec := testutil.CreateProfile(t, f.profRepo, "Secretaria", "Administrativo", permission.ManageUsers)
	ana := testutil.CreateUser(t, f.repo, "Ana", "ana@escola.br", "", user.RoleAdmin, sec.ID, true)
	testutil.CreateUser(t, f.repo, "Bia", "bia@escola.br", "", user.RoleAdmin, "", true)

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Update(ctx, "nope", user.UpdateUser{Name: "X"})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{Email: "BIA@escola.br"})
		assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, fieldErrors(t, err))
	})

	t.Run("keeping own email", func(t *testing.T) {
		got, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{Email: "ana@escola.br", Registration: strPtr("A-1")})
		require.NoError(t, err)
		assert.Equal(t, "A-1", got.Registration)
		assert.Equal(t, sec.ID, got.ProfileID, "unchanged")
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{ProfileID: strPtr("nope")})
		assert.Equal(t, []core.FieldError{{Field: "profile_id", Error: "access profile not found"}}, fieldErrors(t, err))
	})

	t.Run("unbind profile and deactivate", func(t *testing.T) {
		got, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{ProfileID: strPtr(""), IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.Empty(t, got.ProfileID)
		assert.False(t, got.IsActive)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, user.RoleAdmin, got.Role)
	})

	t.Run("password", func(t *testing.T) {
		got, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{Password: strongPwd, PasswordConfirm: strongPwd})
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword(strongPwd))
	})
}

// interleavingRepo runs beforeWrite between the service's reads and its write.
type interleavingRepo struct {
	user.Repository
	beforeWrite func()
}

func (r interleavingRepo) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	return r.Repository.CheckEmailUniqueness(ctx, email, excludedUsers...)
}

func TestService_UpdateAfterProfileDeleted(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	v := core.NewValidator()
	profSvc := profile.NewService(f.profRepo, v, profile.PolicyCascade)
	sec := testutil.CreateProfile(t, f.profRepo, "Secretaria", "Administrativo", permission.ManageUsers)
	ana := testutil.CreateUser(t, f.repo, "Ana", "ana@escola.br", "", user.RoleAdmin, sec.ID, true)

	repo := interleavingRepo{Repository: f.repo, beforeWrite: func() {
		n, err := profSvc.Delete(ctx, sec.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}}
	svc := user.NewService(repo, profSvc, v, f.mailSvc, testutil.Config())

	_, err := svc.Update(ctx, ana.ID, user.UpdateUser{Name: "Ana Maria"})
	assert.Equal(t, []core.FieldError{{Field: "profile_id", Error: "access profile not found"}}, fieldErrors(t, err))

	got, err := f.svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProfileID, "cascade unbinding kept")
	assert.Equal(t, "Ana", got.Name)
}

func TestService_SetLastLogin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	sec := testutil.CreateProfile(t, f.profRepo, "Secretaria", "Administrativo", permission.ManageUsers)
	ana := testutil.CreateUser(t, f.repo, "Ana", "ana@escola.br", strongPwd, user.RoleAdmin, sec.ID, true)

	// deactivated and unbound after ana logged in
	_, err := f.svc.Update(ctx, ana.ID, user.UpdateUser{ProfileID: strPtr(""), IsActive: boolPtr(false)})
	require.NoError(t, err)

	got, err := f.svc.SetLastLogin(ctx, ana)
	require.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero())

	stored, err := f.svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, got.LastLogin, stored.LastLogin, time.Millisecond)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.ProfileID)

	_, err = f.svc.SetLastLogin(ctx, user.User{ID: "nope"})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u1 := testutil.CreateUser(t, f.repo, "U1", "u1@escola.br", "", user.RoleStudent, "", true)
	u2 := testutil.CreateUser(t, f.repo, "U2", "u2@escola.br", "", user.RoleStudent, "", true)

	err := f.svc.Delete(ctx, u1.ID, "unknown")
	assert.True(t, core.IsNotFound(err))
	_, err = f.svc.GetByID(ctx, u1.ID)
	require.NoError(t, err, "nothing deleted")

	require.NoError(t, f.svc.Delete(ctx, u1.ID, u2.ID))
	for _, id := range []string{u1.ID, u2.ID} {
		_, err = f.svc.GetByID(ctx, id)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	}
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	sec := testutil.CreateProfile(t, f.profRepo, "Secretaria", "Administrativo")

	now := time.Now()
	admin := testutil.CreateUser(t, f.repo, "Ana Admin", "ana@escola.br", "", user.RoleAdmin, sec.ID, true, now)
	student := testutil.CreateUser(t, f.repo, "Bruno Aluno", "bruno@escola.br", "", user.RoleStudent, "", true, now.Add(time.Minute))
	parent := testutil.CreateUser(t, f.repo, "Carla Mãe", "carla@escola.br", "", user.RoleParent, "", false, now.Add(2*time.Minute))

	tests := []struct {
		name     string
		filter   *user.QueryFilter
		ordering []core.DBOrdering
		want     []user.User
	}{
		{name: "all", want: []user.User{admin, student, parent}},
		{name: "roles", filter: &user.QueryFilter{Roles: []string{"student,parent"}}, want: []user.User{student, parent}},
		{name: "search", filter: &user.QueryFilter{Search: "BRUNO"}, want: []user.User{student}},
		{name: "profile", filter: &user.QueryFilter{ProfileID: sec.ID}, want: []user.User{admin}},
		{name: "inactive", filter: &user.QueryFilter{IsActive: boolPtr(false)}, want: []user.User{parent}},
		{
			name:     "ordering",
			ordering: []core.DBOrdering{{Field: "name", Ascending: false}, {Field: "password_hash"}},
			want:     []user.User{parent, student, admin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_CountByRole(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.repo, "A", "a@escola.br", "", user.RoleStudent, "", true)
	testutil.CreateUser(t, f.repo, "B", "b@escola.br", "", user.RoleStudent, "", true)

	counts, err := f.svc.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{user.RoleAdmin: 0, user.RoleStudent: 2, user.RoleParent: 0}, counts)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	usr := testutil.CreateUser(t, f.repo, "Ana", "ana@escola.br", "Old#Passw0rd", user.RoleParent, "", true)
	testutil.CreateUser(t, f.repo, "Inactive", "off@escola.br", "", user.RoleParent, "", false)

	assert.True(t, core.IsNotFound(f.svc.RequestPasswordReset(ctx, "nobody@escola.br")))
	assert.True(t, core.IsNotFound(f.svc.RequestPasswordReset(ctx, "off@escola.br")))
	assert.Empty(t, f.mailSvc.SentMessages())

	require.NoError(t, f.svc.RequestPasswordReset(ctx, " ANA@escola.br "))
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "ana@escola.br", msg.To[0].Address)
	assert.Equal(t, "password_reset", msg.TemplateName)
	data := msg.TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Contains(t, msg.TextContent, "/password-reset/"+uid+"/"+token)

	t.Run("invalid token", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: strongPwd, PasswordConfirm: strongPwd})
		require.Error(t, err)
		assert.Equal(t, "token", fieldErrors(t, err)[0].Field)
	})

	t.Run("weak password", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "12345678", PasswordConfirm: "12345678"})
		assert.Equal(t, []core.FieldError{{Field: "password", Error: "password cannot be entirely numeric"}}, fieldErrors(t, err))
	})

	t.Run("valid", func(t *testing.T) {
		err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: strongPwd, PasswordConfirm: strongPwd})
		require.NoError(t, err)
		got, err := f.svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword(strongPwd))

		// the token is single use: the password hash changed
		err = f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "An0ther#Pass", PasswordConfirm: "An0ther#Pass"})
		assert.True(t, core.IsValidationError(err))
	})
}
