package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/delivery-billing/internal/auth"
	"github.com/nurpe/delivery-billing/internal/config"
	"github.com/nurpe/delivery-billing/internal/db"
	"github.com/nurpe/delivery-billing/internal/export"
	httphandler "github.com/nurpe/delivery-billing/internal/http"
	"github.com/nurpe/delivery-billing/internal/http/middleware"
	"github.com/nurpe/delivery-billing/internal/logger"
	"github.com/nurpe/delivery-billing/internal/repository"
	"github.com/nurpe/delivery-billing/internal/repository/memory"
	"github.com/nurpe/delivery-billing/internal/service"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	deliveries service.DeliveryStore
	tariffs    service.TariffStore
	billing    service.BillingStore
}

func openStores(cfg *config.Config, log zerolog.Logger) (stores, error) {
	switch cfg.DB.Driver {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.New()
		return stores{deliveries: store, tariffs: store, billing: store}, nil
	default:
		database, err := db.New(cfg, log)
		if err != nil {
			return stores{}, err
		}
		return stores{
			deliveries: repository.NewDeliveryRepository(database),
			tariffs:    repository.NewTariffRepository(database),
			billing:    repository.NewBillingRepository(database),
		}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}

	deliveryService := service.NewDeliveryService(st.deliveries, st.tariffs, st.billing, cfg, log)
	tariffService := service.NewTariffService(st.tariffs, st.deliveries, st.billing, log)
	billingService := service.NewBillingService(st.deliveries, st.tariffs, st.billing, export.NewGateway(), cfg, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(deliveryService, tariffService, billingService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Str("storage", cfg.DB.Driver).Msg("starting billing service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
