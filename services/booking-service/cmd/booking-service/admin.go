package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salonmonarch/booking/libs/auth"
	"github.com/salonmonarch/booking/libs/runtime"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var email, password string
	c := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account, regardless of ADMIN_REGISTRATION_ENABLED",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			logger := runtime.NewLogger(s.ServiceName, s.LogLevel)
			ctx := cmd.Context()

			st, err := openStores(ctx, s, logger, s.AutoMigrate)
			if err != nil {
				return err
			}
			defer st.close()

			// Create never signs a token, so the issuer secret is irrelevant here.
			issuer, err := auth.NewIssuer("unused", s.JWTTTL)
			if err != nil {
				return err
			}
			p, err := admins.NewService(st.admins, issuer, admins.Options{
				StoreTimeout: s.StoreTimeout,
				Logger:       logger,
			}).Create(ctx, admins.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (%s)\n", p.Email, p.ID)
			return nil
		},
	}
	c.Flags().StringVar(&email, "email", "", "admin email")
	c.Flags().StringVar(&password, "password", "", "admin password (at least 6 characters)")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
