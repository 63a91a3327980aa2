package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/platform/postgres"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configFile *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the review alarm and the task runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, l, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			db, err := openDatabase(ctx, cfg.Database, l)
			if err != nil {
				return err
			}
			if migrate {
				if err := postgres.Migrate(ctx, db, "up", l); err != nil {
					_ = db.Close()
					return err
				}
			}

			app, err := newApplication(cfg, l, db)
			if err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.cleanup()

			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

// Run serves HTTP and drives the background components until ctx is done or
// one of them fails, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(app.config.Server.Port)),
		Handler:      app.handler,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
	}
	return app.serve(ctx, server, func() error { return server.ListenAndServe() })
}

func (app *application) serve(ctx context.Context, server *http.Server, listen func() error) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := app.runner.Start(gctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	if app.scheduler != nil {
		g.Go(func() error {
			return app.scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		app.purgeTrash(gctx, app.config.Trash)
		return nil
	})

	g.Go(func() error {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	app.runner.Stop()
	app.logger.Info("server shutdown completed")
	return err
}

// purgeTrash permanently removes items that have sat in the trash longer
// than the retention period, once per interval until ctx is done.
func (app *application) purgeTrash(ctx context.Context, cfg config.TrashConfig) {
	if cfg.Retention <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()
	for {
		app.purgeTrashOnce(ctx, time.Now().Add(-cfg.Retention))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *application) purgeTrashOnce(ctx context.Context, cutoff time.Time) int64 {
	n, err := app.items.PurgeDeleted(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			app.logger.Error("failed to purge trash", "error", err, "cutoff", cutoff)
		}
		return 0
	}
	return n
}
