package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noteface-service/catalog"
	"noteface-service/db"
	"noteface-service/handlers"
	"noteface-service/logging"
	"noteface-service/middleware"
	"noteface-service/pipeline"
	"noteface-service/tracking"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

Routes:
  POST /receive_push/{secret}      push webhook, queues compilation jobs
  GET  /dl/latest/{document}.pdf   latest build of a document
  GET  /dl/{sha}/{document}.pdf    a specific build
  GET  /documents.json             public document catalog
  GET  /dash/stats.json            download statistics (basic auth)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	artifactStore, err := openArtifacts(cfg)
	if err != nil {
		return err
	}

	agg, err := newAggregator(cfg, store)
	if err != nil {
		return err
	}

	auth, err := middleware.NewAuthenticator(cfg.Dashboard.Username, cfg.Dashboard.Password, cfg.Dashboard.BcryptCost)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		logging.Warn().Msg("Dashboard credentials not set, stats are unreachable and every download is tracked")
	}

	deps := handlers.Deps{
		Store:   store,
		Catalog: catalog.New(store),
		Dispatcher: pipeline.NewDispatcher(pipeline.Config{
			Secret:    cfg.GitHub.PostReceiveSecret,
			BranchRef: cfg.GitHub.BranchRef,
			Extension: cfg.GitHub.Extension,
		}, q),
		Emitter:       tracking.NewEmitter(store, q, artifactStore),
		Stats:         agg,
		Artifacts:     artifactStore,
		Auth:          auth,
		QueueState:    q.State,
		SessionCookie: cfg.Session.CookieName,
		SessionMaxAge: cfg.Session.MaxAge,
		SecureCookie:  cfg.Session.Secure,
		ErrorRedirect: cfg.Redirects.Error,

		TrustedProxies: trusted,
	}
	if cfg.RateLimit.Enabled {
		// share counters across instances when the store is Redis
		if redisDB, ok := store.(*db.RedisDB); ok {
			deps.RateLimit = middleware.RateLimit(redisDB, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		} else {
			deps.RateLimit = middleware.LocalRateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        handlers.NewRouter(deps),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logging.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown error")
	}

	logging.Info().Msg("Server stopped")
	return nil
}
