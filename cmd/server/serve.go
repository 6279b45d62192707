package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fitness-pay-backend/internal/orders"
	"fitness-pay-backend/internal/orders/repository"
	"fitness-pay-backend/internal/redis"
	"fitness-pay-backend/internal/server"
	"fitness-pay-backend/internal/tracing"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitProvider(ctx, server.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	var repo repository.Order
	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Error("missing env, order creation and notifications disabled", "missing", missing)
	} else {
		repo, err = orders.OpenRepository(ctx, cfg.StoreURL, cfg.StoreKey)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	}

	var opts []orders.Option
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		opts = append(opts, orders.WithLocker(redis.NewOrderLocker(redisClient)))
		slog.Info("per-order notification lock enabled")
	}

	service := orders.NewOrderService(cfg, repo, opts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(server.New(cfg, service)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", srv.Addr, "sign_scheme", cfg.SignScheme.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
