package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
	"github.com/trezcool/mentorship/core/risk"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/user"
	appfs "github.com/trezcool/mentorship/fs"
	"github.com/trezcool/mentorship/services/email"
	"github.com/trezcool/mentorship/services/logger"
	"github.com/trezcool/mentorship/services/scheduler"
	"github.com/trezcool/mentorship/storage"
	"github.com/trezcool/mentorship/storage/database/inmem"
	"github.com/trezcool/mentorship/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = inmemdb.NewUserRepository(db)
	store := &storage.Store{
		Engine:   core.StoreMemory,
		Users:    usrRepo,
		Students: inmemdb.NewStudentRepository(db),
		Surveys:  inmemdb.NewSurveyRepository(db),
		Mem:      db,
	}

	conf := core.NewTestConfig()
	logger := logsvc.NewZeroLogger(zerolog.Nop())
	digest := scheduler.NewDigestJob(scheduler.DigestConfig{
		Log:      zerolog.Nop(),
		Students: student.NewService(store.Students, metrics.NewAggregator(metrics.WithTotalFees(conf.Risk.TotalFees))),
		Users:    user.NewService(usrRepo),
		Mailer:   emailsvc.NewConsoleServiceMock(conf, logger),
	})

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		conf:   conf,
		store:  store,
		digest: digest,
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() expected an error")
		}
		return
	}
	if tt.wantErr != nil {
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	} else if tt.wantErrStr != "" {
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	} else {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkRunErr(t, cli.run(args), tt)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	t.Run("memory store", func(t *testing.T) {
		checkRunErr(t, cli.run([]string{"admin", "migrate", "up"}), cliTest{wantErr: errNoDatabase})
	})

	cli.store.SQL = new(sql.DB) // never reached by the mocked goose
	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "mentor_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, cli.run(args), tt)
		})
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "drx"}, wantErr: errHelp},
		{name: "mentor", args: []string{"adduser", "-username", "DrX", "-email", "drx@uni.edu", "-name", "Dr. X", "-mentor"}, extra: extra{pwd: "lol"}},
		{name: "admin", args: []string{"adduser", "-username", "root", "-admin"}, extra: extra{pwd: "lol"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, cli.run(args), tt)
		})
	}

	mentor, err := usrRepo.GetUser(ctx, user.GetFilter{Name: "Dr. X", Role: user.RoleMentor})
	require.NoError(t, err)
	assert.Equal(t, "drx", mentor.Username)
	assert.Equal(t, "drx@uni.edu", mentor.Email)
	assert.True(t, mentor.Active())
	assert.NoError(t, mentor.CheckPassword("lol"))

	root, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "root"})
	require.NoError(t, err)
	assert.Equal(t, user.AllRoles, root.Roles)

	t.Run("existing user is updated", func(t *testing.T) {
		mockPassword("new")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "drx", "-admin"}))

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: mentor.ID})
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin())
		assert.Equal(t, "Dr. X", usr.Name)
		assert.NoError(t, usr.CheckPassword("new"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				if refreshedUsr.CheckPassword(pwd) != nil {
					t.Error("new password does not match")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_assess(t *testing.T) {
	cli, out := setup(t)

	checkRunErr(t, cli.run([]string{"admin", "assess", "-marks", "80"}), cliTest{wantErr: errHelp})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "assess", "-marks", "92", "-attendance", "85", "-fees-paid", "45000"}))
	var a risk.Assessment
	require.NoError(t, json.Unmarshal(out.Bytes(), &a))
	assert.Equal(t, risk.ZoneGreen, a.Zone)
	assert.Equal(t, 89, a.Score)

	err := cli.run([]string{"admin", "assess", "-marks", "92", "-attendance", "85", "-total-fees", "0"})
	assert.ErrorIs(t, err, risk.ErrInvalidFactors)
}

func Test_commandLine_exportImport(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)
	testutil.CreateStudent(t, cli.store.Students, "John", "CS001", "1st", "Dr. X", 92, 85)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "export"}))
	assert.Contains(t, out.String(), `"roll_no": "CS001"`)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, cli.run([]string{"admin", "export", "-o", path}))

	other, _ := setup(t)
	require.NoError(t, other.run([]string{"admin", "import", "-i", path}))
	students, err := other.store.Students.QueryStudents(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "John", students[0].Name)
	usr, err := other.store.Users.GetUser(context.Background(), user.GetFilter{Username: "awe"})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("mdr"))

	t.Run("errors", func(t *testing.T) {
		checkRunErr(t, other.run([]string{"admin", "import"}), cliTest{wantErr: errHelp})
		assert.Error(t, other.importFrom(bytes.NewBufferString(`{"version": "2.0.0"}`)))
		assert.ErrorIs(t, other.importFrom(bytes.NewBufferString(`{"version": "2.0.0"}`)), inmemdb.ErrInvalidSnapshot)

		other.store.Mem = nil
		checkRunErr(t, other.run([]string{"admin", "export"}), cliTest{wantErr: errMemoryOnly})
	})
}

func Test_commandLine_reset(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	checkRunErr(t, cli.run([]string{"admin", "reset"}), cliTest{wantErr: errHelp})
	_, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "awe"})
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "reset", "-yes"}))
	_, err = usrRepo.GetUser(ctx, user.GetFilter{Username: "awe"})
	assert.Equal(t, user.ErrNotFound, err)
	admin, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "admin"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	students, err := cli.store.Students.QueryStudents(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, students, 16)

	cli.store.Mem = nil
	checkRunErr(t, cli.run([]string{"admin", "reset", "-yes"}), cliTest{wantErr: errMemoryOnly})
}

func Test_commandLine_digest(t *testing.T) {
	cli, out := setup(t)
	logger := logsvc.NewZeroLogger(zerolog.Nop())
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, logger)
	emailsvc.ResetSentMessages()

	testutil.CreateStudent(t, cli.store.Students, "Tyler", "CS112", "3rd", "Dr. X", 50, 40)
	testutil.CreateUser(t, usrRepo, "Dr. X", "drx", "drx@uni.edu", "", user.MentorRoles, true)

	require.NoError(t, cli.run([]string{"admin", "digest"}))
	assert.Equal(t, "1 digest(s) sent\n", out.String())
	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "drx@uni.edu", msgs[0].To[0].Address)
}
