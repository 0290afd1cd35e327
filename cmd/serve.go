package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/db"
	"storefront/middleware"
	"storefront/mq"
	"storefront/notifications"
	"storefront/ratelim"
	"storefront/rdx"
	"storefront/routes"
	"storefront/scheduler"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server until SIGINT or SIGTERM, then drain
connections and shut down background workers.

Examples:
  storefront serve
  storefront serve --port 9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		return runServe(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func buildHandler(cfg *config.Config, rateLimiter *ratelim.RateLimiter) http.Handler {
	router := httprouter.New()
	routes.RoutesWrapper(router, rateLimiter)

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	}).Handler(router)

	return middleware.RequestLogger(middleware.SecurityHeaders(corsHandler))
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := db.EnsureIndexes(ictx)
	cancel()
	if err != nil {
		return err
	}

	if cfg.RedisAddr != "" {
		if err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
			// caching and pub/sub are optional; events fall back to in-process
			log.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		} else {
			defer rdx.Close()
		}
	}

	notifications.RegisterHandlers()
	go notifications.Live.Run()
	go mq.StartWorker(ctx)

	rateLimiter := ratelim.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	sched := scheduler.New(ctx)
	for _, job := range []scheduler.Job{
		scheduler.PurgeNotificationsJob(cfg.NotificationRetention),
		scheduler.LimiterCleanupJob(rateLimiter),
	} {
		if err := sched.Add(job); err != nil {
			return err
		}
	}
	sched.Start()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           buildHandler(cfg, rateLimiter),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		log.Info().Msg("Shutting down notification hub")
		notifications.Live.Stop()
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received; shutting down gracefully")
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	sched.Stop(sctx)

	log.Info().Msg("Server stopped cleanly")
	return nil
}
