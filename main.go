package main

import (
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/config"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/database"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/handlers"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/services"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Trade summary backend starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations()

	if err := os.MkdirAll(config.Cfg.StorageDir, 0o755); err != nil {
		stdlog.Fatalf("Failed to create storage directory %s: %v", config.Cfg.StorageDir, err)
	}
	fileStore := services.NewFileStore(afero.NewBasePathFs(afero.NewOsFs(), config.Cfg.StorageDir))

	reportCache := cache.New(config.Cfg.CacheExpiration, config.Cfg.CacheCleanupInterval)

	uploadService := services.NewUploadService(
		database.DB,
		fileStore,
		processors.NewTradeProcessor(),
		reportCache,
	)

	uploadHandler := handlers.NewUploadHandler(uploadService, config.Cfg.MaxUploadSizeBytes, config.Cfg.DefaultFormat)
	summaryHandler := handlers.NewSummaryHandler(uploadService)

	router := handlers.NewRouter(uploadHandler, summaryHandler, handlers.RouterOptions{
		AllowedOrigins: config.Cfg.AllowedOrigins,
		CSRFEnabled:    config.Cfg.CSRFEnabled,
		Limiter:        rate.NewLimiter(rate.Limit(config.Cfg.RateLimitPerSecond), config.Cfg.RateLimitBurst),
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
