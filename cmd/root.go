package cmd

import (
	"fmt"
	"os"

	"storefront/config"
	"storefront/globals"
	"storefront/paycards"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront - e-commerce REST backend",
	Long: `Storefront serves the shop API: catalog, cart, checkout, orders,
wishlists, saved payment cards, notifications and the admin back office.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging regardless of LOG_LEVEL")
}

// loadConfig reads configuration, configures logging and publishes the
// settings other packages read as globals.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	globals.JwtSecret = []byte(cfg.JWTSecret)
	globals.TokenTTL = cfg.JWTExpiresIn
	globals.PublicURL = cfg.PublicURL
	globals.UploadDir = cfg.UploadDir
	paycards.FingerprintKey = []byte(cfg.CardFingerprintKey)
	return cfg, nil
}

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
