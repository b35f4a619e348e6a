package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/engine"
	"github.com/precisionworks/quote-engine/internal/levers"
	"github.com/precisionworks/quote-engine/internal/pricing"
	"github.com/precisionworks/quote-engine/internal/server"
	"github.com/precisionworks/quote-engine/internal/store"
	"github.com/precisionworks/quote-engine/pkg/stock"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quote API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		solver, calc := buildEngine(db)

		addr := cfg.Server.Address
		if serveAddress != "" {
			addr = serveAddress
		}

		srv := &http.Server{
			Addr:         addr,
			Handler:      server.NewHandler(logger, db, solver, calc, engineWindows(), version),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening",
				zap.String("op", "serve"),
				zap.String("address", addr),
			)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "server failed")
		case <-ctx.Done():
		}

		logger.Info("shutting down", zap.String("op", "serve"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// openStore opens the SQLite store, applies the schema, and seeds the
// default material catalog.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	db, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.SeedDefaults(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// engineWindows converts the configured debounce settings into scheduler
// settle windows.
func engineWindows() engine.Windows {
	return engine.Windows{
		Default:    time.Duration(cfg.Engine.DebounceMillis) * time.Millisecond,
		Dimensions: time.Duration(cfg.Engine.DimensionDebounceMillis) * time.Millisecond,
	}
}

// buildEngine assembles the constraint solver and anchor calculator from
// configuration.
func buildEngine(materials pricing.MaterialSource) (*levers.Solver, *pricing.Calculator) {
	catalog := stock.DefaultCatalog()
	if len(cfg.Stock.Thicknesses) > 0 || len(cfg.Stock.Widths) > 0 {
		catalog = stock.NewCatalog(cfg.Stock.Thicknesses, cfg.Stock.Widths)
	}
	solver := levers.NewSolver(catalog, cfg.Engine.StockPadding, logger)
	calc := pricing.NewCalculator(materials, pricing.Params{
		MaterialMarkup:  cfg.Shop.MaterialMarkup,
		BaseMRR:         cfg.Shop.BaseMRR,
		MinHandTimeMins: cfg.Shop.MinHandTimeMins,
	}, logger)
	return solver, calc
}
