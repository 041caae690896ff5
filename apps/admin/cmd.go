package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/services/scheduler"
	"github.com/trezcool/mentorship/storage"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs the postgres store engine")
	errMemoryOnly = errors.New("export, import and reset need the memory store engine")
)

type commandLine struct {
	conf   *core.Config
	store  *storage.Store
	digest *scheduler.DigestJob
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name NAME] [-admin|-mentor] - add or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  assess -marks M -attendance A -fees-paid F [-total-fees T] - score a student's risk")
	fmt.Fprintln(cli.out, "  export [-o FILE] - write a JSON snapshot of the memory store")
	fmt.Fprintln(cli.out, "  import -i FILE - replace the memory store with a JSON snapshot")
	fmt.Fprintln(cli.out, "  reset -yes - wipe the memory store and load the default data again")
	fmt.Fprintln(cli.out, "  digest - mail the at-risk digest to every mentor now")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Mentors are matched to students by name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give every role to the user.")
	addUserMentor := addUserCmd.Bool("mentor", false, "Give the mentor role to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	assessCmd := flag.NewFlagSet("assess", flag.ExitOnError)
	assessMarks := assessCmd.Float64("marks", -1, "The academic average (0-100).")
	assessAttendance := assessCmd.Float64("attendance", -1, "The attendance percentage (0-100).")
	assessFeesPaid := assessCmd.Float64("fees-paid", 0, "The fees paid so far.")
	assessTotalFees := assessCmd.Float64("total-fees", cli.conf.Risk.TotalFees, "The fees due for the year.")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOut := exportCmd.String("o", "", "The snapshot file to write. Defaults to stdout.")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importIn := importCmd.String("i", "", "The snapshot file to read.")

	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)
	resetConfirm := resetCmd.Bool("yes", false, "Confirm that every user, student, survey and response is deleted.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(newUserArgs{
			name:     strings.TrimSpace(*addUserName),
			username: *addUserUname,
			email:    *addUserEmail,
			password: pwd,
			isAdmin:  *addUserAdmin,
			isMentor: *addUserMentor,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "assess":
		if err := assessCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assessMarks < 0 || *assessAttendance < 0 {
			assessCmd.Usage()
			return errHelp
		}
		return cli.assess(*assessMarks, *assessAttendance, *assessFeesPaid, *assessTotalFees)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.export(*exportOut)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importIn == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importSnapshot(*importIn)

	case "reset":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if !*resetConfirm {
			resetCmd.Usage()
			return errHelp
		}
		return cli.reset()

	case "digest":
		return cli.sendDigest()

	default:
		cli.printUsage()
		return errHelp
	}
}
