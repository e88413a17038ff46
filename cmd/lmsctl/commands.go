package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/lms-platform/internal/access"
	"github.com/magabrotheeeer/lms-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-platform/internal/migrations"
	"github.com/magabrotheeeer/lms-platform/internal/services/auth"
	"github.com/magabrotheeeer/lms-platform/internal/services/inactivity"
	"github.com/magabrotheeeer/lms-platform/internal/services/notification"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.storage()
			if err != nil {
				return err
			}
			if err := migrations.Run(db.DB, e.cfg.MigrationsPath); err != nil {
				return err
			}
			version, dirty, err := migrations.Version(db.DB, e.cfg.MigrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func newPromoteCmd(e *env) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Set the role of a user: admin, moderator or user",
		Long: `Set the role of an existing user.

Examples:
  lmsctl promote alice@example.com --role moderator
  lmsctl promote root@example.com --role admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := access.ParseRole(role)
			if err != nil {
				return err
			}
			svc, err := e.authService()
			if err != nil {
				return err
			}
			user, err := svc.Promote(commandContext(cmd), args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now %s\n", user.ID, user.Email, access.RoleOf(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", access.RoleModerator.String(), "role to assign")
	return cmd
}

func newUnblockCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <email>",
		Short: "Reactivate a user deactivated for inactivity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.authService()
			if err != nil {
				return err
			}
			user, err := svc.UnblockByEmail(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) unblocked\n", user.ID, user.Email)
			return nil
		},
	}
}

func newSweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-inactive",
		Short: "Deactivate users inactive longer than the configured threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.storage()
			if err != nil {
				return err
			}
			pub, err := e.publisher()
			if err != nil {
				return err
			}
			n, err := inactivity.NewService(db, pub, e.cfg.Inactivity, e.log).Sweep(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d users\n", n)
			return nil
		},
	}
}

func newRescanCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-rescan",
		Short: "Notify subscribers of recently updated courses outside the cool-down window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.storage()
			if err != nil {
				return err
			}
			pub, err := e.publisher()
			if err != nil {
				return err
			}
			n, err := notification.NewService(db, pub, e.cfg.Notification, e.cfg.FrontendURL, e.log).Rescan(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notified %d courses\n", n)
			return nil
		},
	}
}

func (e *env) authService() (*auth.Service, error) {
	db, err := e.storage()
	if err != nil {
		return nil, err
	}
	pub, err := e.publisher()
	if err != nil {
		return nil, err
	}
	return auth.NewService(db, jwt.NewJWTMaker(e.cfg.JWTSecretKey, e.cfg.TokenTTL), pub, e.cfg.FrontendURL, e.log), nil
}
