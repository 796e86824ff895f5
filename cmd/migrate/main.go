// Command migrate applies the embedded schema migrations to DATABASE_URL,
// or with -down reverts all of them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"alcovian/internal/config"
	"alcovian/internal/database"
)

var (
	loadConfig  = func() (*config.Config, error) { return config.Load() }
	migrateUp   = database.RunMigrations
	migrateDown = database.RollbackAll
	exitFunc    = os.Exit
)

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	down := fs.Bool("down", false, "revert every migration instead of applying them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if *down {
		if err := migrateDown(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		_, err = fmt.Fprintln(out, "migrations rolled back")
		return err
	}
	if err := migrateUp(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	_, err = fmt.Fprintln(out, "migrations applied")
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}
