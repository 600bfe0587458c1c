package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/naveenspark/portal/internal/config"
	"github.com/naveenspark/portal/pkg/domain"
	"github.com/naveenspark/portal/pkg/session"
)

type credentials struct {
	name     string
	email    string
	password string
}

func parseCredentials(cmd string, args []string, withName bool, stderr io.Writer) (credentials, error) {
	var c credentials
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	if withName {
		fs.StringVar(&c.name, "name", "", "display name")
	}
	fs.StringVar(&c.email, "email", "", "account email")
	fs.StringVar(&c.password, "password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if fs.NArg() > 0 {
		return c, fmt.Errorf("%s: unexpected arguments: %s", cmd, strings.Join(fs.Args(), " "))
	}
	c.email = strings.TrimSpace(c.email)
	c.name = strings.TrimSpace(c.name)
	return c, nil
}

func runLogin(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, stdout, stderr io.Writer) error {
	c, err := parseCredentials("login", args, false, stderr)
	if err != nil {
		return err
	}
	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.mgr.Login(ctx, c.email, c.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	printSignedIn(stdout, user)
	return nil
}

func runRegister(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, stdout, stderr io.Writer) error {
	c, err := parseCredentials("register", args, true, stderr)
	if err != nil {
		return err
	}
	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.mgr.Register(ctx, c.name, c.email, c.password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	printSignedIn(stdout, user)
	return nil
}

func runLogout(ctx context.Context, cfg *config.Config, log zerolog.Logger, stdout io.Writer) error {
	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	// Load the stored pair without checking it; the server is told with
	// whatever access token is held.
	if <-st.mgr.Restore(ctx, nil) == session.StateAnonymous {
		fmt.Fprintln(stdout, "Already logged out.")
		return nil
	}
	st.mgr.Logout(ctx)
	fmt.Fprintln(stdout, "Logged out.")
	return nil
}

func runWhoami(ctx context.Context, cfg *config.Config, log zerolog.Logger, stdout io.Writer) error {
	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if <-st.mgr.Restore(ctx, st.api) == session.StateAnonymous {
		if err := ctx.Err(); err != nil {
			return err
		}
		printSignedOut(stdout)
		return nil
	}
	snap := st.mgr.Snapshot()
	if snap.User == nil {
		return errors.New("whoami: session has no user")
	}
	printSignedIn(stdout, snap.User)
	return nil
}

func printSignedIn(w io.Writer, u *domain.User) {
	fmt.Fprintf(w, "Signed in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
}
