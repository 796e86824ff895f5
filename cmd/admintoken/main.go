// Command admintoken mints a bearer token for the admin-only endpoints,
// signed with ADMIN_JWT_SECRET.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"alcovian/internal/config"
	"alcovian/internal/service"
)

var (
	loadConfig = func() (*config.Config, error) { return config.Load() }
	exitFunc   = os.Exit
)

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admintoken", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("sub", "", "identity provider user id to embed as the token subject")
	email := fs.String("email", "", "optional email claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-sub is required")
	}
	if *ttl <= 0 {
		return errors.New("-ttl must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tok, err := service.IssueAccessToken(cfg.AdminJWTSecret, *subject, *email, true, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}
