// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/postgres"
	"github.com/holomush/userauth/internal/logging"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	return newUserCmdWithDeps(nil)
}

func newUserCmdWithDeps(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect user records",
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "find <field>=<value>...",
		Short: "Look up a user by one or more fields",
		Long: `Look up the user matching every given field. Recognized fields are
id, email, session_id and reset_token; token fields take the stored digest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserFind(cmd, args, deps)
		},
	})
	return cmd
}

func runUserFind(cmd *cobra.Command, args []string, deps *Deps) error {
	values, err := parseAssignments(args)
	if err != nil {
		return err
	}
	criteria, err := auth.CriteriaFromMap(values)
	if err != nil {
		return err
	}

	deps = deps.withDefaults()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, cmd.ErrOrStderr())

	pool, err := deps.PoolOpener(cmd.Context(), cfg.Database.URL, cfg.Database.ConnectAttempts, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := postgres.NewUserStore(pool).Find(cmd.Context(), criteria)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			cmd.Println("No matching user")
		}
		return err
	}

	cmd.Printf("id:            %d\n", user.ID)
	cmd.Printf("email:         %s\n", user.Email)
	cmd.Printf("session:       %s\n", yesNo(user.HasSession()))
	cmd.Printf("reset pending: %s\n", yesNo(user.HasPendingReset()))
	cmd.Printf("created:       %s\n", user.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	return nil
}

// parseAssignments splits field=value arguments. A repeated field is an error.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, oops.Code("INVALID_ARGUMENT").With("argument", arg).Errorf("expected field=value, got %q", arg)
		}
		if _, dup := values[name]; dup {
			return nil, oops.Code("INVALID_ARGUMENT").With("field", name).Errorf("field %q given more than once", name)
		}
		values[name] = value
	}
	return values, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
