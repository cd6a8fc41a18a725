package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/meeting-secretary-team/meeting-secretary/pkg/validator"

	"github.com/meeting-secretary-team/meeting-secretary/internal/adapter/handler"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/external/assemblyai"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/external/gdrive"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/external/jira"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/external/nlp"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/external/zoom"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/storage"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/history"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/pipeline"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize history storage backend
	log.Printf("📦 Initializing history storage (%s)...", cfg.History.Backend)
	var store storage.Store
	switch cfg.History.Backend {
	case "redis":
		redisStore, err := storage.NewRedisStore(&cfg.History)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, history runs degraded: %v", err)
		} else {
			store = redisStore
		}
	case "file":
		fileStore, err := storage.NewFileStore(cfg.History.FilePath)
		if err != nil {
			log.Printf("⚠️  History file unusable, history runs degraded: %v", err)
		} else {
			store = fileStore
		}
	case "memory":
		store = storage.NewMemoryStore()
	}
	historyService := history.NewService(store, cfg.History.StorageKey, logger)

	// Initialize recording archive (optional)
	var archiver pipeline.Archiver
	var archiveLister handler.ArchiveLister
	if cfg.Archive.Enabled {
		log.Println("🗄️  Initializing recording archive...")
		archiveClient, err := storage.NewArchiveClient(&cfg.Archive)
		if err != nil {
			log.Printf("⚠️  Archive unavailable, recordings will not be archived: %v", err)
		} else {
			archiver = archiveClient
			archiveLister = archiveClient
		}
	}

	// Initialize remote service clients
	log.Println("🎙️  Initializing transcription client...")
	transcriber := assemblyai.NewClient(&cfg.Assembly, logger)

	log.Println("🧠 Initializing extraction client...")
	extractor := nlp.NewClient(&cfg.Extractor, logger)

	log.Println("📋 Initializing tracker client...")
	tracker := jira.NewClient(cfg.Tracker.Timeout, logger)

	log.Println("📹 Initializing recording-fetch clients...")
	zoomClient := zoom.NewClient(&cfg.Zoom, logger)
	driveClient := gdrive.NewClient(&cfg.Drive, logger)

	// Stage deadlines wrap each client's own timeout with a little slack so
	// the stage context never fires first under normal operation.
	fetchTimeout := cfg.Zoom.Timeout
	if cfg.Drive.Timeout > fetchTimeout {
		fetchTimeout = cfg.Drive.Timeout
	}
	timeouts := pipeline.Timeouts{
		Fetch:      fetchTimeout + 15*time.Second,
		Transcribe: cfg.Assembly.Timeout + 30*time.Second,
		Extract:    cfg.Extractor.Timeout*time.Duration(cfg.Extractor.Retries+1) + 15*time.Second,
		Sync:       cfg.Tracker.Timeout + 5*time.Second,
	}

	// Initialize pipeline service
	log.Println("⚙️  Initializing pipeline service...")
	pipelineService := pipeline.NewService(pipeline.Dependencies{
		Transcriber: transcriber,
		Extractor:   extractor,
		Tracker:     tracker,
		Zoom:        zoomClient,
		Drive:       driveClient,
		Archiver:    archiver,
		History:     historyService,
		Timeouts:    timeouts,
	}, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	runHandler := handler.NewRun(pipelineService, logger)
	historyHandler := handler.NewHistory(pipelineService, logger)
	archiveHandler := handler.NewArchive(archiveLister, logger)
	router := handler.NewRouter(cfg, runHandler, historyHandler, archiveHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
