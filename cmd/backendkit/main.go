/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Command backendkit serves the users API with throttling of anonymous traffic
// and the soft-delete lifecycle of accounts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	serviceName = "backendkit"
	errDomain   = "BackendKit"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Users API with anonymous request throttling and soft-delete lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"path to the configuration file (.yaml, .yml or .json)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env",
		"file with environment variables loaded before the configuration, ignored if it does not exist")

	cmd.AddCommand(newServeCommand(flags), newMigrateCommand(flags), newCreateSuperuserCommand(flags))
	return cmd
}
