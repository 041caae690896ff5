package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/risk"
	"github.com/trezcool/mentorship/core/user"
	appfs "github.com/trezcool/mentorship/fs"
	inmemdb "github.com/trezcool/mentorship/storage/database/inmem"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.store.SQL == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.store.SQL, appfs.FS, appfs.MigrationsDir, arguments...)
}

type newUserArgs struct {
	name, username, email, password string
	isAdmin, isMentor               bool
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	repo := cli.store.Users
	uname := core.CleanString(args.username, true /* lower */)
	email := core.CleanString(args.email, true /* lower */)

	lookup := []string{uname, email}
	if uname == "" {
		lookup = []string{email}
	}
	usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if args.name != "" {
		usr.Name = args.name
	}
	switch {
	case args.isAdmin:
		usr.Roles = user.AllRoles
	case args.isMentor:
		usr.Roles = user.MentorRoles
	}
	usr.SetActive(true)
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(args.password); err != nil {
		return err
	}
	if _, err := repo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	repo := cli.store.Users
	usr, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := repo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}

func (cli *commandLine) assess(marks, attendance, feesPaid, totalFees float64) error {
	a, err := risk.Assess(risk.Factors{
		Marks:      marks,
		Attendance: attendance,
		FeesPaid:   feesPaid,
		TotalFees:  totalFees,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func (cli *commandLine) export(path string) error {
	if cli.store.Mem == nil {
		return errMemoryOnly
	}
	if path == "" {
		return cli.store.Mem.Export(cli.out)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot file")
	}
	if err = cli.store.Mem.Export(file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "closing snapshot file")
}

func (cli *commandLine) importSnapshot(path string) error {
	if cli.store.Mem == nil {
		return errMemoryOnly
	}
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening snapshot file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	return cli.importFrom(file)
}

func (cli *commandLine) importFrom(r io.Reader) error {
	if err := cli.store.Mem.Import(r); err != nil {
		return err
	}
	return cli.store.Mem.Save()
}

func (cli *commandLine) reset() error {
	if cli.store.Mem == nil {
		return errMemoryOnly
	}
	if err := cli.store.Mem.Reset(); err != nil {
		return err
	}
	return inmemdb.Seed(context.Background(), cli.store.Mem)
}

func (cli *commandLine) sendDigest() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sent, err := cli.digest.Send(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d digest(s) sent\n", sent)
	return nil
}
