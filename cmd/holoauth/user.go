// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/config"
)

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(nil))
	return cmd
}

func newUserCreateCmd(deps *Deps) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an account",
		Long: `Register an account through the same validation and hashing as the API.
The password is read from the first line of standard input, so it never
appears in shell history or the process list:

  printf '%s\n' "$PASSWORD" | holoauth user create --username alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runUserCreate(cmd, cfg, deps, auth.Credentials{Username: username, Password: password})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func runUserCreate(cmd *cobra.Command, cfg *config.Config, deps *Deps, creds auth.Credentials) error {
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := buildComponents(ctx, cfg, logger, deps)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Service.Register(ctx, creds)
	if err != nil {
		return err
	}
	if !result.OK() {
		msgs := make([]string, 0, len(result.Errors))
		for _, fe := range result.Errors {
			msgs = append(msgs, fe.Message)
		}
		return oops.Code("USER_REJECTED").
			With("username", creds.Username).
			Errorf("%s", strings.Join(msgs, "; "))
	}

	cmd.Printf("Created user %s (%s)\n", result.User.Username, result.User.ID)
	return nil
}

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be provided on standard input")
	}
	return password, nil
}
