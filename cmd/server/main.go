package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/database"
	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/logger"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/queue"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/router"
	"github.com/iliyamo/bookmyseat/internal/service"
	"github.com/iliyamo/bookmyseat/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("production", "error").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Error("database open failed", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}

	clk := clock.Real()
	store := service.NewStore(db)
	ensureAdmin(ctx, cfg, store.Users, log)

	var sessions service.SessionStore
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
	} else {
		log.Warn("redis unreachable: checkout sessions kept in memory, cache and rate limit off", "addr", cfg.Redis.Addr)
		sessions = session.NewMemoryStore(clk)
	}

	sweeper := service.NewSweeper(store, clk, log)
	ledger := service.NewLedger(store, sweeper, clk, log, service.WithHoldTTL(cfg.Booking.HoldTTL))
	checkout := service.NewCheckout(sessions, store, sweeper, clk, log, cfg.Booking.SessionTTL)
	finalizer := service.NewFinalizer(store, clk, queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue), log)
	catalog := service.NewCatalog(store, sweeper)

	e := router.New(cfg, router.Handlers{
		Health:  handler.NewHealthHandler(db),
		Auth:    handler.NewAuthHandler(cfg.JWT, store.Users, log),
		Catalog: handler.NewCatalogHandler(catalog, log),
		Booking: handler.NewBookingHandler(ledger, checkout, finalizer, catalog, store.Bookings, cfg.Payment.PublicKey, log),
		Admin:   handler.NewAdminHandler(catalog, log),
	}, rdb, log)

	addr := ":" + cfg.App.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.App.Env, "db", cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

// ensureAdmin creates the configured admin account on first start.
func ensureAdmin(ctx context.Context, cfg *config.Config, users *repository.UserRepo, log *logger.Logger) {
	if cfg.App.AdminEmail == "" || cfg.App.AdminPassword == "" {
		return
	}
	_, err := users.Create(ctx, cfg.App.AdminEmail, "Administrator", cfg.App.AdminPassword, model.RoleAdmin, cfg.JWT.BcryptCost)
	switch {
	case err == nil:
		log.Info("admin account created", "email", cfg.App.AdminEmail)
	case errors.Is(err, repository.ErrEmailExists):
	default:
		log.Error("admin account not created", "error", err)
	}
}
