// cmd/presaled/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/app"
	"github.com/xthemadgenius/SolContracts/internal/config"
	"github.com/xthemadgenius/SolContracts/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the config file; empty reads PRESALED_* variables only")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting presale daemon", zap.String("program_id", cfg.Program.ID))
	if err := app.NewRunner(cfg, log.Logger).Run(ctx); err != nil {
		log.Error("Daemon stopped with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Presale daemon stopped")
}
