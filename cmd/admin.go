package cmd

import (
	"context"
	"fmt"
	"time"

	"storefront/auth"
	"storefront/db"

	"github.com/spf13/cobra"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing one",
	Long: `Create an admin account. If the email is already registered the
account is promoted to admin and reactivated; --password then replaces its
password, and may be omitted to keep the current one.

Examples:
  storefront create-admin --email ops@example.com --password s3cret --name Ops
  storefront create-admin --email existing@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
			return err
		}
		defer db.Disconnect(context.Background())

		user, created, err := auth.EnsureAdmin(ctx, adminName, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID.Hex())
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", user.Email, user.ID.Hex())
		}
		return nil
	},
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
			return err
		}
		defer db.Disconnect(context.Background())

		if err := db.EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name for a new account")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Account email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password (required for a new account)")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(createAdminCmd, ensureIndexesCmd)
}
