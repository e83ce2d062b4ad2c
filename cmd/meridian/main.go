package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ledger/gl"
	"github.com/meridian-erp/meridian-erp/internal/ledger/landedcost"
	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequence"
	"github.com/meridian-erp/meridian-erp/internal/ledger/tax"
	"github.com/meridian-erp/meridian-erp/internal/ledger/voucher"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	scales := cfg.Scales()

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Redis is optional at startup: without it the tax rule cache
	// degrades to direct loads.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, tax rule cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)

	periodRepo := periods.NewRepository(pool)
	periodService := periods.NewService(periodRepo)
	periodHandler := periods.NewHandler(logger, periodService)

	seqService := sequence.NewService()

	taxRepo := tax.NewRepository(pool)
	taxSource := tax.NewCachedSource(taxRepo, redisClient, cfg.TaxRuleCacheTTL)
	taxEngine := tax.NewEngine(taxSource, scales)
	taxHandler := tax.NewHandler(logger, taxEngine)

	projector := gl.NewProjector(scales)

	voucherRepo := voucher.NewRepository(pool)
	voucherService := voucher.NewService(voucherRepo, seqService, taxEngine, projector, auditLogger, scales, logger)
	voucherHandler := voucher.NewHandler(logger, voucherService)

	landedCostRepo := landedcost.NewRepository(pool)
	landedCostService := landedcost.NewService(landedCostRepo, voucherService, auditLogger, scales, logger)
	landedCostHandler := landedcost.NewHandler(logger, landedCostService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		VoucherHandler:    voucherHandler,
		LandedCostHandler: landedCostHandler,
		TaxHandler:        taxHandler,
		PeriodHandler:     periodHandler,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
