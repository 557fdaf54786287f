// Package ctl implements keeperctl, the operator tool for audiokeeper
// databases: hashing passwords, applying migrations and resetting a
// password without a running server.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/server/auth"
	"github.com/dmitrijs2005/audiokeeper/internal/server/repositories/repomanager"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// test seams for the terminal
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

const usage = `usage: keeperctl <command> [flags]

commands:
  hash                      print a password digest
  migrate  --dsn DSN        apply database migrations
  passwd   --dsn DSN --user NAME
                            set a user's password
`

// ErrUsage is returned for unknown commands or bad flags.
var ErrUsage = errors.New("usage error")

type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

func Run(ctx context.Context, args []string, stdio IO) error {
	if len(args) == 0 {
		fmt.Fprint(stdio.Err, usage)
		return ErrUsage
	}

	switch args[0] {
	case "hash":
		return runHash(args[1:], stdio)
	case "migrate":
		return runMigrate(ctx, args[1:], stdio)
	case "passwd":
		return runPasswd(ctx, args[1:], stdio)
	case "help", "-h", "--help":
		fmt.Fprint(stdio.Out, usage)
		return nil
	default:
		fmt.Fprint(stdio.Err, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func newFlagSet(name string, w io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}
	return nil
}

func runHash(args []string, stdio IO) error {
	fs := newFlagSet("hash", stdio.Err)
	if err := parse(fs, args); err != nil {
		return err
	}

	pw, err := getPassword(stdio, "Password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	digest, err := auth.HashPassword(string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdio.Out, digest)
	return err
}

func runMigrate(ctx context.Context, args []string, stdio IO) error {
	fs := newFlagSet("migrate", stdio.Err)
	dsn := fs.StringP("dsn", "d", "", "database DSN (postgres URL or sqlite file)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *dsn == "" {
		return fmt.Errorf("%w: --dsn is required", ErrUsage)
	}

	db, dialect, err := dbx.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repomanager.NewSQLRepositoryManager(dialect).RunMigrations(ctx, db); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdio.Out, "migrations applied (%s)\n", dialect)
	return err
}

func runPasswd(ctx context.Context, args []string, stdio IO) error {
	fs := newFlagSet("passwd", stdio.Err)
	dsn := fs.StringP("dsn", "d", "", "database DSN (postgres URL or sqlite file)")
	user := fs.StringP("user", "u", "", "username")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *dsn == "" || *user == "" {
		return fmt.Errorf("%w: --dsn and --user are required", ErrUsage)
	}

	pw, err := getPassword(stdio, "New password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errors.New("password must not be empty")
	}

	db, dialect, err := dbx.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repomanager.NewSQLRepositoryManager(dialect).Users(db)
	u, err := users.FindByUserName(ctx, *user)
	if err != nil {
		return fmt.Errorf("user %q: %w", *user, err)
	}

	digest, err := auth.HashPassword(string(pw))
	if err != nil {
		return err
	}
	if err := users.UpdatePassword(ctx, u.ID, digest); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdio.Out, "password updated for %s\n", u.UserName)
	return err
}

// getPassword reads without echo from a terminal, otherwise one line from
// stdio.In.
func getPassword(stdio IO, prompt string) ([]byte, error) {
	if f, ok := stdio.In.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(stdio.Err, prompt)
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(stdio.Err)
		return pw, err
	}

	line, err := bufio.NewReader(stdio.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
