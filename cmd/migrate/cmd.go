package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/academic-panel/internal/models"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Version(ctx context.Context) (int64, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

type commandLine struct {
	migrator migrator
	users    userCreator
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  up                                   - apply pending migrations")
	fmt.Fprintln(cli.out, "  down                                 - roll back the latest migration")
	fmt.Fprintln(cli.out, "  version                              - print the current schema version")
	fmt.Fprintln(cli.out, "  createuser -email EMAIL -name NAME [-role ROLE] - create a panel user; the password is prompted next")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createUserCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createUserCmd.SetOutput(cli.out)
	email := createUserCmd.String("email", "", "Login email of the new user.")
	name := createUserCmd.String("name", "", "Full name shown in the panel.")
	role := createUserCmd.String("role", string(models.RoleSuperAdmin), "SUPERADMIN, ADMIN, REGISTRAR, CASHIER or AGENT.")

	switch args[1] {
	case "up":
		return cli.migrator.Up(ctx)
	case "down":
		return cli.migrator.Down(ctx)
	case "version":
		version, err := cli.migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "schema version %d\n", version)
		return nil
	case "createuser":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" || *name == "" {
			createUserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createUserCmd.Usage()
			return errHelp
		}
		user, err := cli.users.CreateUser(ctx, models.CreateUserRequest{
			Email:    *email,
			Password: string(pwd),
			FullName: *name,
			Role:     models.UserRole(strings.ToUpper(*role)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s (%s)\n", user.Email, user.Role)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}
