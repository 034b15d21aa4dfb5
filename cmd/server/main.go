// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/api"
	"github.com/andresuchdata/oilhub/backend-go/internal/cache"
	"github.com/andresuchdata/oilhub/backend-go/internal/config"
	"github.com/andresuchdata/oilhub/backend-go/internal/observability/metrics"
	"github.com/andresuchdata/oilhub/backend-go/internal/service"
	"github.com/andresuchdata/oilhub/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.Server.Mode)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Init()

	repos, cleanup, err := openRepositories(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("store", cfg.App.Store).Msg("Failed to open repositories")
	}
	defer cleanup()

	locker, err := cache.NewOrderLocker(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis lock unavailable, falling back to in-process order locks")
		locker = cache.NewLocalOrderLocker()
	}

	catalog := service.NewSourceCatalog(repos.deliveries, repos.reclaims)
	inventory := service.NewInventoryService(catalog)
	workflow := service.NewAllocationWorkflow(inventory, catalog, cfg.App.HubBranchID)
	orders := service.NewOrderService(repos.orders, repos.branches, workflow, locker)

	router := api.NewRouter(&api.Services{
		Branches:  repos.branches,
		Catalog:   catalog,
		Inventory: inventory,
		Orders:    orders,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("store", cfg.App.Store).
			Int64("hub_branch_id", cfg.App.HubBranchID).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
