package profile_test

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
	"github.com/trezcool/educonnect/storage/database/inmem"
	"github.com/trezcool/educonnect/tests"
)

type fixture struct {
	svc     *profile.Service
	repo    profile.Repository
	usrRepo user.Repository
}

func setup(policy profile.DeletePolicy) fixture {
	db := inmemdb.NewDB()
	repo := inmemdb.NewProfileRepository(db)
	return fixture{
		svc:     profile.NewService(repo, core.NewValidator(), policy),
		repo:    repo,
		usrRepo: inmemdb.NewUserRepository(db),
	}
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T: %v", err, err)
	return vErr.Fields
}

// registry returns every stored profile.
func registry(t *testing.T, f fixture) []profile.Profile {
	t.Helper()
	all, err := f.svc.Query(context.Background(), nil)
	require.NoError(t, err)
	return all
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)

	tests := []struct {
		name       string
		np         profile.NewProfile
		wantPerms  []permission.Permission
		wantFields []core.FieldError
	}{
		{
			name: "valid",
			np: profile.NewProfile{
				Name:        " Secretaria ",
				Sector:      "Administrativo",
				Permissions: []permission.Permission{permission.ManageUsers, permission.ViewGrades, permission.ManageUsers},
			},
			wantPerms: []permission.Permission{permission.ViewGrades, permission.ManageUsers},
		},
		{
			name:      "no permissions",
			np:        profile.NewProfile{Name: "Visitante", Sector: "Externo"},
			wantPerms: []permission.Permission{},
		},
		{
			name: "blank name and sector",
			np:   profile.NewProfile{Name: "  ", Sector: "\t"},
			wantFields: []core.FieldError{
				{Field: "name", Error: "this field is required"},
				{Field: "sector", Error: "this field is required"},
			},
		},
		{
			name: "unknown permission",
			np: profile.NewProfile{
				Name:        "Hacker",
				Sector:      "TI",
				Permissions: []permission.Permission{permission.ViewGrades, "launch_missiles"},
			},
			wantFields: []core.FieldError{{Field: "permissions", Error: "unknown permission"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := registry(t, f)
			p, err := f.svc.Create(ctx, tt.np)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldErrors(t, err))
				assert.Equal(t, before, registry(t, f), "no profile added")
				return
			}
			assert.Len(t, registry(t, f), len(before)+1)
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, tt.wantPerms, p.Permissions)

			got, err := f.svc.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestService_CreateNeverReusesIDs(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		p, err := f.svc.Create(ctx, profile.NewProfile{Name: "P", Sector: "S"})
		require.NoError(t, err)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		_, err = f.svc.Delete(ctx, p.ID)
		require.NoError(t, err)
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)
	p := testutil.CreateProfile(t, f.repo, "Coordenação", "Pedagógico", permission.ViewGrades)

	t.Run("unknown profile", func(t *testing.T) {
		_, err := f.svc.Update(ctx, "nope", profile.UpdateProfile{Name: "X", Sector: "Y"})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := f.svc.Update(ctx, p.ID, profile.UpdateProfile{Name: "X"})
		assert.Equal(t, []core.FieldError{{Field: "sector", Error: "this field is required"}}, fieldErrors(t, err))
	})

	t.Run("replaces the permissions", func(t *testing.T) {
		got, err := f.svc.Update(ctx, p.ID, profile.UpdateProfile{
			Name:        "Coordenação",
			Sector:      "Pedagógico",
			Permissions: []permission.Permission{permission.EditGrades, permission.PublishNotices},
		})
		require.NoError(t, err)
		assert.Equal(t, []permission.Permission{permission.EditGrades, permission.PublishNotices}, got.Permissions)

		perms, err := f.svc.EffectivePermissions(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, perms.Has(permission.ViewGrades))
		assert.True(t, perms.Has(permission.EditGrades))
	})

	t.Run("idempotent", func(t *testing.T) {
		up := profile.UpdateProfile{
			Name:        "Coordenação Geral",
			Sector:      "Pedagógico",
			Permissions: []permission.Permission{permission.ViewReports},
		}
		first, err := f.svc.Update(ctx, p.ID, up)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		second, err := f.svc.Update(ctx, p.ID, up)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown profile", func(t *testing.T) {
		f := setup(profile.PolicyReject)
		testutil.CreateProfile(t, f.repo, "Secretaria", "Administrativo", permission.ManageUsers)
		before := registry(t, f)
		require.Len(t, before, 1)

		_, err := f.svc.Delete(ctx, "nope")
		assert.True(t, core.IsNotFound(err))
		assert.Equal(t, before, registry(t, f), "registry unchanged")
	})

	t.Run("unreferenced", func(t *testing.T) {
		f := setup(profile.PolicyReject)
		p := testutil.CreateProfile(t, f.repo, "Temp", "TI")
		n, err := f.svc.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		_, err = f.svc.GetByID(ctx, p.ID)
		assert.Equal(t, profile.ErrNotFound, errors.Cause(err))
	})

	t.Run("referenced, reject", func(t *testing.T) {
		f := setup(profile.PolicyReject)
		p := testutil.CreateProfile(t, f.repo, "Secretaria", "Administrativo", permission.ManageUsers)
		usr := testutil.CreateUser(t, f.usrRepo, "Ana", "ana@escola.br", "", user.RoleAdmin, p.ID, true)
		before := registry(t, f)

		_, err := f.svc.Delete(ctx, p.ID)
		assert.True(t, core.IsConflict(err))
		assert.Equal(t, before, registry(t, f), "registry unchanged")

		_, err = f.svc.GetByID(ctx, p.ID)
		require.NoError(t, err, "profile persists")
		got, err := f.usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ProfileID)
	})

	t.Run("referenced, cascade", func(t *testing.T) {
		f := setup(profile.PolicyCascade)
		p := testutil.CreateProfile(t, f.repo, "Secretaria", "Administrativo", permission.ManageUsers)
		ana := testutil.CreateUser(t, f.usrRepo, "Ana", "ana@escola.br", "", user.RoleAdmin, p.ID, true)
		bia := testutil.CreateUser(t, f.usrRepo, "Bia", "bia@escola.br", "", user.RoleAdmin, p.ID, true)

		n, err := f.svc.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = f.svc.GetByID(ctx, p.ID)
		assert.True(t, core.IsNotFound(err))
		for _, u := range []user.User{ana, bia} {
			got, err := f.usrRepo.GetUser(ctx, user.GetFilter{ID: u.ID})
			require.NoError(t, err)
			assert.Empty(t, got.ProfileID)
		}
		perms, err := f.svc.EffectivePermissions(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, perms)
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)
	sec := testutil.CreateProfile(t, f.repo, "Secretaria", "Administrativo")
	dir := testutil.CreateProfile(t, f.repo, "Direção", "Administrativo")
	coord := testutil.CreateProfile(t, f.repo, "coordenação", "Pedagógico")

	tests := []struct {
		name   string
		filter *profile.QueryFilter
		want   []profile.Profile
	}{
		{name: "all, by name", want: []profile.Profile{coord, dir, sec}},
		{name: "sector", filter: &profile.QueryFilter{Sector: " administrativo "}, want: []profile.Profile{dir, sec}},
		{name: "search", filter: &profile.QueryFilter{Search: "ÇÃO"}, want: []profile.Profile{coord, dir}},
		{name: "no match", filter: &profile.QueryFilter{Search: "zzz"}, want: []profile.Profile{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_EffectivePermissions(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)
	p := testutil.CreateProfile(t, f.repo, "Professores", "Pedagógico", permission.EditGrades, permission.ViewGrades)

	perms, err := f.svc.EffectivePermissions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []permission.Permission{permission.ViewGrades, permission.EditGrades}, perms.Slice())

	for _, id := range []string{"", "unknown"} {
		perms, err = f.svc.EffectivePermissions(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, perms)
	}
}

func TestService_Ensure(t *testing.T) {
	ctx := context.Background()
	f := setup(profile.PolicyReject)

	np := profile.NewProfile{Name: "Superusuário", Sector: "Sistema", Permissions: permission.All()}
	first, err := f.svc.Ensure(ctx, np)
	require.NoError(t, err)
	np.Name = "superusuário"
	second, err := f.svc.Ensure(ctx, np)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestParseDeletePolicy(t *testing.T) {
	for s, want := range map[string]profile.DeletePolicy{"": profile.PolicyReject, "reject": profile.PolicyReject, " Cascade ": profile.PolicyCascade} {
		got, err := profile.ParseDeletePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := profile.ParseDeletePolicy("orphan")
	assert.Error(t, err)
}
