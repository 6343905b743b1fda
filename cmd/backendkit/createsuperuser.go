/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/backendkit/go-backendkit/log"
	"github.com/backendkit/go-backendkit/users"
)

// passwordEnvVar is read when --password is not given, so the password stays out of the shell history.
const passwordEnvVar = envVarsPrefix + "_SUPERUSER_PASSWORD"

type createSuperuserFlags struct {
	email    string
	name     string
	password string
}

func newCreateSuperuserCommand(flags *rootFlags) *cobra.Command {
	suFlags := &createSuperuserFlags{}
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a user with all permissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			user, err := a.createSuperuser(cmd.Context(), suFlags)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %s).\n", user.Email, user.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&suFlags.email, "email", "", "email of the superuser (required)")
	cmd.Flags().StringVar(&suFlags.name, "name", "", "name of the superuser")
	cmd.Flags().StringVar(&suFlags.password, "password", "",
		"password of the superuser, "+passwordEnvVar+" environment variable is used if empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) createSuperuser(ctx context.Context, flags *createSuperuserFlags) (*users.User, error) {
	password := flags.password
	if password == "" {
		password = os.Getenv(passwordEnvVar)
	}
	if password == "" {
		return nil, fmt.Errorf("password is required, use --password or %s", passwordEnvVar)
	}
	user, err := a.users.Create(ctx, users.CreateParams{
		Email:       flags.email,
		Name:        flags.name,
		Password:    password,
		IsSuperuser: true,
	}, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	a.logger.Info("superuser created", log.String("user_id", user.ID.String()))
	return user, nil
}
