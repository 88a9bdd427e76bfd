package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devcamper/catalog/internal/config"
	"github.com/devcamper/catalog/internal/services"
)

func main() {
	// 0. Parse Command Line Flags
	runAPI := flag.Bool("api", false, "Serve the REST API")
	runWorker := flag.Bool("worker", false, "Consume aggregate recompute tasks")
	host := flag.String("host", "", "Override server.host")
	flag.Parse()

	// Default to running both roles in one process
	if !*runAPI && !*runWorker {
		*runAPI = true
		*runWorker = true
	}

	// 1. Load Configuration
	cfg := config.LoadConfig()

	// 2. Initialize Service Manager
	mgr := services.NewManager(cfg, services.Options{
		RunAPI:     *runAPI,
		RunWorker:  *runWorker,
		ListenHost: *host,
	})

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	if err := mgr.Init(initCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	slog.Info("Starting catalog", "api", *runAPI, "worker", *runWorker)

	// 3. Start Services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	mgr.Start(bgCtx)

	// 4. Wait for a signal or a fatal background error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("Shutting down services...", "signal", sig.String())
	case err := <-mgr.Errors():
		slog.Error("Shutting down after failure", "error", err)
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	bgCancel()
	mgr.Shutdown(shutdownCtx)

	log.Println("All services stopped.")
	if exitCode != 0 {
		shutdownCancel()
		os.Exit(exitCode)
	}
}
