package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/config"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags override environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Workspace.TemplatesDir, "templates", cfg.Workspace.TemplatesDir, "Directory of extra workspace templates")
	flag.BoolVar(&cfg.Preview.HeadlessEnabled, "headless", cfg.Preview.HeadlessEnabled, "Mirror every workspace into a headless preview")
	flag.DurationVar(&cfg.Preview.AttachTimeout, "attach-timeout", cfg.Preview.AttachTimeout, "How long an opened preview window has to connect")
	flag.BoolVar(&cfg.Export.ImportURLEnabled, "import-url", cfg.Export.ImportURLEnabled, "Allow importing project archives from URLs")
	flag.StringVar(&cfg.Export.FileName, "export-name", cfg.Export.FileName, "Base name of exported project archives")
	flag.Parse()

	log.Println("CodeCanvas live preview server")

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
		log.Fatalf("Server error: %v", runErr)
	}
}
