package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinik/internal/gateway"
	"klinik/internal/mockapi"
	"klinik/pkg/config"
)

const ServiceName = "mock-api"

func main() {
	cfg := config.Load(ServiceName)

	fake := gateway.NewFakeGateway(cfg.Location)
	gateway.SeedDemo(fake, gateway.DemoConfig{
		OrganizationID: cfg.OrganizationID,
		Seed:           uint64(cfg.DemoSeed),
		Around:         time.Now().In(cfg.Location),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mockapi.NewRouter(fake, cfg.Log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		cfg.Log.Info("Starting mock clinic API", "address", server.Addr, "organization_id", cfg.OrganizationID)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Fatal("Mock API failed", "error", err)
		}
	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			cfg.Log.Error("Mock API shutdown failed", "error", err)
		}
	}
}
