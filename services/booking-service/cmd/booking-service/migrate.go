package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/salonmonarch/booking/libs/runtime"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations or create Mongo indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if s.Backend == backendMemory {
				return errors.New("STORE_BACKEND is memory; nothing to migrate")
			}
			logger := runtime.NewLogger(s.ServiceName, s.LogLevel)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			st, err := openStores(ctx, s, logger, true)
			if err != nil {
				return err
			}
			st.close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", s.Backend)
			return nil
		},
	}
}
