package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
)

func TestDSN(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Host:          "db.local",
		Port:          5433,
		Name:          "mentorship",
		User:          "app",
		Password:      "p@ss/word",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}

	tests := []struct {
		name     string
		dbName   string
		admin    bool
		wantUser string
		wantPwd  string
		wantSSL  string
	}{
		{name: "app user", dbName: "mentorship", wantUser: "app", wantPwd: "p@ss/word", wantSSL: "disable"},
		{name: "admin user", dbName: maintenanceDB, admin: true, wantUser: "postgres", wantPwd: "root", wantSSL: "disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(dsn(tt.dbName, tt.admin, conf))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.local:5433", u.Host)
			assert.Equal(t, "/"+tt.dbName, u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			pwd, _ := u.User.Password()
			assert.Equal(t, tt.wantPwd, pwd)
			assert.Equal(t, tt.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}

	t.Run("admin falls back to the app user", func(t *testing.T) {
		c := *conf
		c.Database.AdminUser = ""
		c.Database.DisableTLS = false
		u, err := url.Parse(dsn(maintenanceDB, true, &c))
		require.NoError(t, err)
		assert.Equal(t, "app", u.User.Username())
		assert.Equal(t, "require", u.Query().Get("sslmode"))
	})
}

func TestCreateQueries(t *testing.T) {
	assert.Equal(t,
		`CREATE USER "mentorship" CREATEDB ENCRYPTED PASSWORD 'it''s'`,
		createUserQuery("mentorship", "it's"),
	)
	assert.Equal(t, `CREATE DATABASE "mentor""ship"`, createDBQuery(`mentor"ship`))
}
