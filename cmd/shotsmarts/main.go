package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabular/shotsmarts/internal/api"
	"github.com/tabular/shotsmarts/internal/backup"
	"github.com/tabular/shotsmarts/internal/config"
	"github.com/tabular/shotsmarts/internal/logging"
	"github.com/tabular/shotsmarts/internal/storage"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "HTTP listen address (overrides listen_addr)")
		driver      = flag.String("driver", "", "Storage driver: json, bolt or sqlite")
		dbPath      = flag.String("db", "", "History file or database path")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version information")

		calc       = flag.Bool("calc", false, "Calculate exposure settings")
		light      = flag.String("light", "sunny", "Light condition")
		iso        = flag.Float64("iso", 100, "ISO (100-3200 in steps of 100)")
		scene      = flag.String("scene", "landscape", "Scene mode")
		saveName   = flag.String("save", "", "Save the calculated or imported settings under this name")
		notes      = flag.String("notes", "", "Notes for a saved record")
		list       = flag.Bool("list", false, "List saved records")
		query      = flag.String("q", "", "Filter listed records by name")
		showStats  = flag.Bool("stats", false, "Show history statistics")
		renameID   = flag.String("rename", "", "Rename the record with this ID (use with -name)")
		newName    = flag.String("name", "", "New record name")
		deleteID   = flag.String("delete", "", "Delete the record with this ID")
		cleanDB    = flag.Bool("clean", false, "Delete every saved record")
		runBackup  = flag.Bool("backup", false, "Write a backup snapshot now")
		exifPath   = flag.String("exif", "", "Compare a photo's EXIF settings with the recommendation")
		dof        = flag.Bool("dof", false, "Compute depth of field")
		hyperfocal = flag.Bool("hyperfocal", false, "Compute hyperfocal distance")
		equiv      = flag.Bool("equiv", false, "Compute 35mm-equivalent focal length")
		focal      = flag.Float64("focal", 50, "Focal length in mm")
		aperture   = flag.Float64("aperture", 8, "Aperture f-number")
		distance   = flag.Float64("distance", 3, "Focus distance in meters")
		sensor     = flag.String("sensor", "fullFrame", "Sensor format")
		lang       = flag.String("lang", "", "Display language (en, zh-Hans)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ShotSmarts Exposure Service\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *driver != "" {
		cfg.DatabaseDriver = *driver
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *lang != "" {
		cfg.Locale = *lang
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	// Pure calculations never touch storage.
	switch {
	case *calc && *saveName == "":
		exitOn(logger, "calculate", runCalculate(*light, *iso, *scene, cfg.Locale))
		return
	case *dof:
		exitOn(logger, "depth of field", runDepthOfField(*focal, *aperture, *distance, *sensor))
		return
	case *hyperfocal:
		exitOn(logger, "hyperfocal", runHyperfocal(*focal, *aperture, *sensor))
		return
	case *equiv:
		exitOn(logger, "equivalent focal length", runEquivalent(*focal, *sensor))
		return
	case *exifPath != "" && *saveName == "":
		exitOn(logger, "exif import", runExifCompare(*exifPath, *light, *scene, cfg.Locale))
		return
	}

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("Failed to create data directories", "error", err)
		os.Exit(1)
	}

	backend, err := storage.Open(cfg.DatabaseDriver, cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx := context.Background()
	history := storage.NewHistory(ctx, backend, logger.Named("history"))

	switch {
	case *calc:
		exitOn(logger, "save", runSave(ctx, history, *saveName, *notes, *light, *iso, *scene))
	case *exifPath != "":
		exitOn(logger, "exif import", runExifImport(ctx, history, *exifPath, *saveName, *light, *scene))
	case *list:
		exitOn(logger, "list", listRecords(history, *query, cfg.Locale))
	case *showStats:
		exitOn(logger, "stats", showHistoryStats(ctx, history))
	case *renameID != "":
		exitOn(logger, "rename", renameRecord(ctx, history, *renameID, *newName))
	case *deleteID != "":
		exitOn(logger, "delete", deleteRecord(ctx, history, *deleteID))
	case *cleanDB:
		logger.Info("Cleaning history", "path", cfg.DatabasePath)
		exitOn(logger, "clean", history.Clear(ctx))
		logger.Info("History cleaned successfully")
	case *runBackup:
		scheduler := backup.NewScheduler(history, cfg.BackupDir, "", cfg.BackupKeep, logger.Named("backup"))
		exitOn(logger, "backup", runBackupNow(ctx, scheduler))
	default:
		startServer(cfg, history, logger)
	}
}

func exitOn(logger *logging.Logger, op string, err error) {
	if err == nil {
		return
	}
	logger.Error("Operation failed", "operation", op, "error", err)
	logger.Sync()
	os.Exit(1)
}

func startServer(cfg *config.Config, history *storage.History, logger *logging.Logger) {
	logger.Info("Starting ShotSmarts service",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"driver", cfg.DatabaseDriver,
		"db_path", cfg.DatabasePath,
		"log_level", cfg.LogLevel,
	)

	scheduler := backup.NewScheduler(history, cfg.BackupDir, cfg.BackupSchedule, cfg.BackupKeep, logger.Named("backup"))
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start backup scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	service := api.NewService(history, logger.Named("api"), version, cfg.Locale)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      service.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("ShotSmarts service started",
			"endpoint", "http://"+cfg.ListenAddr,
			"websocket", "ws://"+cfg.ListenAddr+"/ws/calculate",
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := history.Flush(ctx); err != nil {
		logger.Error("Unsaved history changes were lost", "error", err)
	}

	logger.Info("Server stopped successfully")
}
