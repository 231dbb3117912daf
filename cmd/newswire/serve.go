package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/newswire/internal/auth"
	"github.com/joestump/newswire/internal/build"
	"github.com/joestump/newswire/internal/config"
	"github.com/joestump/newswire/internal/db"
	"github.com/joestump/newswire/internal/handler"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/newsroom"
	"github.com/joestump/newswire/internal/store"
	"github.com/joestump/newswire/internal/upload"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log.Env, cfg.Log.Level)
			logger.Info("starting", "build", build.String())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			storage, err := upload.NewStorage(ctx, cfg.Upload.Backend, cfg.Upload.Root, cfg.Upload.S3)
			if err != nil {
				return fmt.Errorf("upload storage: %w", err)
			}
			gate := upload.NewGate(storage, upload.Config{
				MaxSize:       cfg.Upload.MaxSize,
				DefaultMarker: cfg.Upload.DefaultMarker,
				LegacyRoot:    cfg.Upload.LegacyRoot,
			}, logger)

			views := make(chan store.ViewEvent, 256)
			viewsDone := make(chan struct{})
			go func() {
				defer close(viewsDone)
				newsroom.RunViewWriter(ctx, views, store.NewViewStore(database), logger)
			}()

			svc := newsroom.New(database, gate, newsroom.Defaults{
				NewsImage: cfg.Assets.DefaultNews,
				Avatar:    cfg.Assets.DefaultAvatar,
				TeamImage: cfg.Assets.DefaultTeam,
			}, views, logger)

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime, !cfg.InsecureCookies)
			oidcProvider, err := auth.NewProvider(ctx, cfg)
			if err != nil {
				return err
			}

			userStore := store.NewUserStore(database)
			authHandlers := auth.NewHandlers(oidcProvider, sessionManager, userStore, cfg.AdminEmail, logger)
			authMiddleware := auth.NewMiddleware(sessionManager, userStore)

			router := handler.NewRouter(handler.Deps{
				DB:               database,
				Logger:           logger,
				SessionManager:   sessionManager,
				AuthHandlers:     authHandlers,
				AuthMiddleware:   authMiddleware,
				Newsroom:         svc,
				Gate:             gate,
				UserStore:        userStore,
				CategoryStore:    store.NewCategoryStore(database),
				TeamStore:        store.NewTeamMemberStore(database),
				ContactStore:     store.NewContactStore(database),
				StatsStore:       store.NewStatsStore(database),
				TokenStore:       auth.NewSQLTokenStore(database),
				MaxBody:          cfg.HTTP.MaxBody,
				ContactRateLimit: cfg.ContactRateLimit,
				APIRateLimit:     cfg.APIRateLimit,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.HTTP.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", "error", err)
			}
			stop()
			<-viewsDone
			return nil
		},
	}
}
