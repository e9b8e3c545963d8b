package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/service"
)

func newSeedCommand() *cobra.Command {
	var username, fullName, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap SysAdmin account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			if username == "" {
				username = rt.cfg.Seed.AdminUsername
			}
			if fullName == "" {
				fullName = rt.cfg.Seed.AdminFullName
			}
			if password == "" {
				password = rt.cfg.Seed.AdminPassword
			}
			if password == "" {
				return errors.New("admin password required: pass --password or set SEED_ADMIN_PASSWORD")
			}
			return seedAdmin(ctx, rt, username, fullName, password)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&fullName, "full-name", "", "admin display name")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func seedAdmin(ctx context.Context, rt *resources, username, fullName, password string) error {
	users := service.NewUserService(rt.store, rt.cfg.Auth.BcryptCost, rt.logger)
	created, err := users.EnsureAdmin(ctx, username, fullName, password)
	if err != nil {
		return err
	}
	if created {
		rt.logger.Info("bootstrap admin created", zap.String("username", username))
	} else {
		rt.logger.Info("bootstrap admin already present", zap.String("username", username))
	}
	return nil
}
