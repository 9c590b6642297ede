package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB // nil unless sessions are stored in postgres
	sessions *session.Manager
	backend  authenticator
	catalog  school.Catalog
	out      io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, ...) on the sessions database\n")
	cli.printf("  purgesessions - delete the expired sessions\n")
	cli.printf("  browse -username USERNAME -entity ENTITY [-search TERM] [-filter FIELD=VALUE] [-page N] [-page-size N] - print a list page\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	browseCmd := flag.NewFlagSet("browse", flag.ContinueOnError)
	browseCmd.SetOutput(cli.out)
	var opts browseOptions
	browseCmd.StringVar(&opts.username, "username", "", "The backend username. The password will be prompted next.")
	browseCmd.StringVar(&opts.entity, "entity", "", "One of: "+strings.Join(cli.catalog.Names(), ", "))
	browseCmd.StringVar(&opts.search, "search", "", "Free-text search term.")
	browseCmd.Var(&opts.filters, "filter", "FIELD=VALUE filter, repeatable.")
	browseCmd.IntVar(&opts.page, "page", 1, "The page to print.")
	browseCmd.IntVar(&opts.pageSize, "page-size", 0, "Records per page, the list default when 0.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "purgesessions":
		return cli.purgeSessions()

	case "browse":
		if err := browseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if opts.username == "" || opts.entity == "" {
			browseCmd.Usage()
			return errHelp
		}
		cli.printf("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		cli.printf("\n")
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			browseCmd.Usage()
			return errHelp
		}
		opts.password = string(pwd)
		return cli.browse(opts)

	default:
		cli.printUsage()
		return errHelp
	}
}

// filterFlags collects repeated -filter FIELD=VALUE flags.
type filterFlags map[string]string

func (f *filterFlags) String() string {
	pairs := make([]string, 0, len(*f))
	for k, v := range *f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f *filterFlags) Set(value string) error {
	field, val, ok := strings.Cut(value, "=")
	if !ok || field == "" {
		return fmt.Errorf("filter must be of form FIELD=VALUE (got %q)", value)
	}
	if *f == nil {
		*f = filterFlags{}
	}
	(*f)[field] = val
	return nil
}
