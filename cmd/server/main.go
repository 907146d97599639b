package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/choropleth/internal/config"
	"github.com/stwalsh4118/choropleth/internal/database"
	apierrors "github.com/stwalsh4118/choropleth/internal/errors"
	"github.com/stwalsh4118/choropleth/internal/handlers"
	"github.com/stwalsh4118/choropleth/internal/loader"
	"github.com/stwalsh4118/choropleth/internal/logger"
	"github.com/stwalsh4118/choropleth/internal/middleware"
	"github.com/stwalsh4118/choropleth/internal/models"
	"github.com/stwalsh4118/choropleth/internal/repository"
	"github.com/stwalsh4118/choropleth/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.Server.Env, cfg.Server.LogLevel)
	log.Info("Starting Choropleth API", map[string]interface{}{
		"version":        handlers.APIVersion,
		"environment":    cfg.Server.Env,
		"port":           cfg.Server.Port,
		"metrics_source": cfg.Data.MetricsSource,
	})

	ctx := context.Background()
	fetcher := loader.NewLocationFetcher("")

	// Metrics come from a JSON document or from PostgreSQL
	var (
		metrics loader.MetricsSource
		pinger  handlers.Pinger
	)
	if cfg.UsesDatabase() {
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		defer db.Close()

		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})

		repo := repository.NewMetricRepository(db)
		if ids, err := repo.DatasetIDs(ctx); err != nil {
			log.Warn("Failed to list datasets in database", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			log.Info("Datasets with metric values", map[string]interface{}{
				"datasets": ids,
			})
		}

		metrics = repo
		pinger = db
	} else {
		metrics = loader.NewFileMetricsSource(fetcher, cfg.Data.MetricsPath, cfg.Data.MetricsDefaultDataset, log)
	}

	// Initialize loader, store and service layers
	dataLoader := loader.New(
		loader.NewGeometryLoader(fetcher, cfg.Data.GeometryPath, cfg.Data.GeoIDField, log),
		metrics,
		loader.NewFileRegistrySource(fetcher, cfg.Data.DatasetsPath, log),
	)
	store := loader.NewStore()
	choroplethService := services.NewChoroplethService(store, dataLoader, services.Options{
		DefaultDataset: cfg.Data.DefaultDataset,
		DefaultMetric:  cfg.Data.DefaultMetric,
		Map: services.MapParams{
			Center:             [2]float64{cfg.Map.CenterLat, cfg.Map.CenterLng},
			Zoom:               cfg.Map.Zoom,
			MinZoom:            cfg.Map.MinZoom,
			MaxBounds:          models.LatLngBounds(cfg.Map.MaxBounds),
			MaxBoundsViscosity: cfg.Map.MaxBoundsViscosity,
		},
	}, log.WithComponent("choropleth"))

	// Initial load runs in the background; readiness reports when it lands
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
		defer cancel()
		if _, err := choroplethService.Reload(loadCtx); err != nil {
			log.Error("Initial data load failed", err, map[string]interface{}{
				"geometry": cfg.Data.GeometryPath,
				"datasets": cfg.Data.DatasetsPath,
			})
		}
	}()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/health/ready"))
	router.Use(middleware.Recovery(log, apierrors.Panic))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(choroplethService, pinger, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Register API v1 routes
	choroplethHandler := handlers.NewChoroplethHandler(choroplethService, cfg.Data.LoadTimeout)
	choroplethHandler.RegisterRoutes(router.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
