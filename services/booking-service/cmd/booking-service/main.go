package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salonmonarch/booking/libs/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var envFiles []string
	root := &cobra.Command{
		Use:           "booking-service",
		Short:         "Salon appointment booking API, notifier and admin tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.Load(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newNotifierCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newAdminCmd())
	root.AddCommand(newSlotsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
