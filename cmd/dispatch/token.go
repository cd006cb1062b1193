package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/app"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tokenRole string
	tokenID   string
)

// Login lives outside this service. token mints a bearer for an identity the
// operator vouches for.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a manager or a driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		role := types.UserRole(strings.ToUpper(tokenRole))
		if !role.IsValid() {
			return fmt.Errorf("--role must be manager or driver, got %q", tokenRole)
		}

		id := uuid.New()
		switch {
		case tokenID != "":
			parsed, err := uuid.Parse(tokenID)
			if err != nil {
				return fmt.Errorf("--id: %w", err)
			}
			id = parsed
		case role == types.RoleDriver:
			return fmt.Errorf("--id is required for drivers")
		}

		cfg, log, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuth(); err != nil {
			return err
		}

		storage, err := app.OpenStorage(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer storage.Close()

		services, err := app.NewServices(ctx, cfg, storage, nil, nil, log)
		if err != nil {
			return err
		}

		token, exp, err := services.Tokens.Issue(ctx, models.Identity{ID: id, Role: role})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\nrole: %s\nexpires: %s\ntoken: %s\n", id, role, exp.Format(time.RFC3339), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "manager", "manager or driver")
	tokenCmd.Flags().StringVar(&tokenID, "id", "", "subject id; required for drivers")
}
