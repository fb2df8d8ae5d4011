// vulnregctl is an operator tool for out-of-band actions on a vulnreg
// installation. Its only command, reset-password, replaces the administrator
// password in the credential file. The session secret is left untouched, so
// outstanding sessions stay valid, matching the in-band password change.
//
// It refuses to run against an unconfigured installation: first-time setup
// belongs to the web flow, which also generates the session secret.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"vulnreg/internal/auth"
	"vulnreg/internal/common"
	"vulnreg/internal/logging"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	file := flag.String("f", "credentials.json", "credential file path")
	flag.Parse()

	if flag.Arg(0) != "reset-password" {
		fmt.Fprintln(os.Stderr, "usage: vulnregctl [-f credentials.json] reset-password")
		os.Exit(2)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := resetPassword(context.Background(), *file, logger, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resetPassword(ctx context.Context, path string, logger logging.Logger, out io.Writer) error {
	store := auth.NewCredentialStore(path, logger)

	rec, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("no credentials on file; run first-time setup through the web interface")
	}

	password, err := promptNewPassword(out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	hasher := auth.NewPasswordHasher(0, logger)
	hash, err := hasher.Hash(string(password))
	if err != nil {
		return err
	}

	if _, err := store.Update(ctx, func(rec *auth.CredentialRecord) {
		rec.PasswordHash = hash
	}); err != nil {
		return err
	}

	fmt.Fprintln(out, "password updated; existing sessions remain valid")
	return nil
}

// promptNewPassword reads the new password twice from the terminal without
// echo and applies the same minimum-length policy as the web flows.
func promptNewPassword(out io.Writer) ([]byte, error) {
	fmt.Fprint(out, "New password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(out, "Repeat password: ")
	repeat, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(repeat)

	if !bytes.Equal(pw, repeat) {
		common.WipeByteArray(pw)
		return nil, errors.New("passwords do not match")
	}
	if len(pw) < auth.MinPasswordLength {
		common.WipeByteArray(pw)
		return nil, fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}
	return pw, nil
}
