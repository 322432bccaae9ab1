// Command server exposes stored BreakFinder analyses over HTTP and analyzes uploaded
// episodes against the configured jingles.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/BreakFinder/internal/config"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/logger"
)

var (
	configPath     string
	port           int
	dbPath         string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
		cfg.Storage.Disabled = false
	}
	if allowedOrigins != "" {
		origins := strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.AllowedOrigins = origins
	}
	if level, ok := logger.ParseLevel(cfg.Logging.Level); ok {
		logger.SetLevel(level)
	}

	opts, err := cfg.ServiceOptions()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	opts = append(opts, breakfinder.WithLogger(logger.GetLogger()))

	service, err := breakfinder.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	tempDir := cfg.Media.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Server.Port,
		DBPath:         cfg.Storage.DBPath,
		TempDir:        tempDir,
		Threshold:      cfg.Detection.Threshold,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMiB) << 20,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Errorf("Server failed: %v", err)
		stop()
		service.Close()
		os.Exit(1)
	}
}
