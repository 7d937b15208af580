package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"alliance-observatory/internal/config"
	"alliance-observatory/internal/constants"
	fxmodules "alliance-observatory/internal/fx"
	"alliance-observatory/internal/ingest"
	"alliance-observatory/internal/retention"
	"alliance-observatory/internal/server"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/worker"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	control *server.ControlServer,
	w *worker.Worker,
	cleaner *retention.Cleaner,
	st store.Store,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) error {
	scheduler := cron.New()
	if _, err := cleaner.Schedule(scheduler); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           control.Handler(),
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ingest.EnsureAlliance(ctx, st, cfg); err != nil {
				return fmt.Errorf("failed to ensure alliance: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			scheduler.Start()

			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
			}

			<-scheduler.Stop().Done()
			w.Stop()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			if err != nil {
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
	return nil
}
