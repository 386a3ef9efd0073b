package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/oneclick/internal/infrastructure/config"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	appDir := flag.String("app-dir", cfg.Shell.AppDir, "Installation directory holding scripts/install.ps1")
	headless := flag.Bool("headless", cfg.Shell.Mode == config.ModeHeadless, "Run the renderer in-process instead of serving a window")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Shell.AppDir = *appDir
	cfg.Logging.Development = *dev
	if *headless {
		cfg.Shell.Mode = config.ModeHeadless
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Launcher error: %v", runErr)
	}
}
