package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/user"
	appfs "github.com/trezcool/mentorship/fs"
	"github.com/trezcool/mentorship/storage/database/inmem"
	"github.com/trezcool/mentorship/tests"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*user.Service, user.Repository) {
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, nopLogger{})
	repo := inmemdb.NewUserRepository(testutil.PrepareDB(t))
	return user.NewService(repo), repo
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	validate, translator := testutil.NewValidator()
	testutil.CreateUser(t, repo, "Taken", "taken", "taken@x.com", "", user.StudentRoles, true)

	tests := []struct {
		name string
		nu   user.NewUser
		want map[string]string
	}{
		{
			name: "missing username and email",
			nu:   user.NewUser{Name: "Ann", Password: "Str0ng!Pass#", PasswordConfirm: "Str0ng!Pass#"},
			want: map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			},
		},
		{
			name: "short password",
			nu:   user.NewUser{Name: "Ann", Username: "annlee", Password: "Ab1!", PasswordConfirm: "Ab1!"},
			want: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name: "numeric password",
			nu:   user.NewUser{Name: "Ann", Username: "annlee", Password: "12345678", PasswordConfirm: "12345678"},
			want: map[string]string{"password": "password cannot be entirely numeric"},
		},
		{
			name: "common password",
			nu:   user.NewUser{Name: "Ann", Username: "annlee", Password: "P@ssw0rd", PasswordConfirm: "P@ssw0rd"},
			want: map[string]string{"password": "password is too common"},
		},
		{
			name: "weak password",
			nu:   user.NewUser{Name: "Ann", Username: "annlee", Password: "weakpassword", PasswordConfirm: "weakpassword"},
			want: map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			},
		},
		{
			name: "password similar to username",
			nu:   user.NewUser{Name: "Ann", Username: "bobby", Password: "Bobby!123", PasswordConfirm: "Bobby!123"},
			want: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name: "mismatched confirmation & bad roles",
			nu: user.NewUser{
				Name: "Ann", Username: "annlee", Password: "Str0ng!Pass#", PasswordConfirm: "Str0ng!Pass",
				Roles: []string{"root:"},
			},
			want: map[string]string{
				"password_confirm": "password_confirm must be equal to Password",
				"roles":            "invalid roles",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, validate, svc)
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.want, core.TranslateFieldErrors(vErrs, translator))
		})
	}

	t.Run("taken username", func(t *testing.T) {
		nu := user.NewUser{Name: "Ann", Username: " TAKEN ", Password: "Str0ng!Pass#", PasswordConfirm: "Str0ng!Pass#"}
		err := nu.Validate(ctx, validate, svc)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, user.ErrUsernameExists, vErr.Err)
		assert.Equal(t, []core.FieldError{{Field: "username", Error: user.ErrUsernameExists.Error()}}, vErr.Fields)
	})

	t.Run("valid", func(t *testing.T) {
		nu := user.NewUser{Name: " Ann Lee ", Username: "AnnLee", Email: "Ann@X.com", Password: "Str0ng!Pass#", PasswordConfirm: "Str0ng!Pass#"}
		require.NoError(t, nu.Validate(ctx, validate, svc))
		assert.Equal(t, "Ann Lee", nu.Name)
		assert.Equal(t, "annlee", nu.Username)
		assert.Equal(t, "ann@x.com", nu.Email)
	})
}

func TestService_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	usr, err := svc.Create(ctx, user.NewUser{
		Name: "Ann", Username: "annlee", Email: "ann@x.com", Password: "Str0ng!Pass#", Roles: user.MentorRoles,
	})
	require.NoError(t, err)
	assert.True(t, usr.Active())
	assert.True(t, usr.IsMentor())
	assert.NoError(t, usr.CheckPassword("Str0ng!Pass#"))

	t.Run("by username or email", func(t *testing.T) {
		for _, uname := range []string{"annlee", " ANN@X.COM "} {
			got, err := svc.Authenticate(ctx, uname, "Str0ng!Pass#")
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.False(t, got.LastLogin.IsZero())
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "annlee", "wrong")
		assert.Equal(t, user.ErrInvalidCredentials, err)
		_, err = svc.Authenticate(ctx, "nobody", "Str0ng!Pass#")
		assert.Equal(t, user.ErrInvalidCredentials, err)
	})

	t.Run("deactivated", func(t *testing.T) {
		inactive := false
		_, err := svc.Update(ctx, usr.ID, user.UpdateUser{Name: usr.Name, Username: usr.Username, Email: usr.Email, IsActive: &inactive})
		require.NoError(t, err)
		_, err = svc.Authenticate(ctx, "annlee", "Str0ng!Pass#")
		assert.Equal(t, user.ErrAccountDeactivated, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	orig := testutil.CreateUser(t, repo, "Ann", "annlee", "ann@x.com", "Str0ng!Pass#", user.StudentRoles, true)

	uu := user.UpdateUser{Department: "Physics", Password: "N3w!Secret#", PasswordConfirm: "N3w!Secret#"}
	require.NoError(t, uu.Validate(ctx, orig, validate, svc))
	usr, err := svc.Update(ctx, orig.ID, uu)
	require.NoError(t, err)
	assert.Equal(t, "Ann", usr.Name)
	assert.Equal(t, "annlee", usr.Username)
	assert.Equal(t, "Physics", usr.Department)
	assert.Equal(t, user.StudentRoles, usr.Roles)
	assert.NoError(t, usr.CheckPassword("N3w!Secret#"))

	_, err = svc.Update(ctx, "nope", user.UpdateUser{})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_QueryAndGetMentor(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	mentor := testutil.CreateUser(t, repo, "Dr. Sarah Miller", "mentor", "sarah@x.com", "", user.MentorRoles, true)
	testutil.CreateUser(t, repo, "Sarah Miller", "sarahm", "sarahm@x.com", "", user.StudentRoles, true)
	testutil.CreateUser(t, repo, "Admin", "admin", "admin@x.com", "", user.AdminRoles, false)

	got, err := svc.GetMentorByName(ctx, " dr. sarah miller ")
	require.NoError(t, err)
	assert.Equal(t, mentor.ID, got.ID)
	_, err = svc.GetMentorByName(ctx, "Sarah Miller")
	assert.Equal(t, user.ErrNotFound, err)

	active := true
	users, err := svc.Query(ctx, &user.QueryFilter{IsActive: &active, Search: "miller"}, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, svc.Delete(ctx, mentor.ID))
	_, err = svc.GetByID(ctx, mentor.ID)
	assert.Equal(t, user.ErrNotFound, err)
}
