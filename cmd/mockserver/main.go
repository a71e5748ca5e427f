package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lolalalalo-o/autocombat/internal/auth"
	"github.com/Lolalalalo-o/autocombat/internal/config"
	"github.com/Lolalalalo-o/autocombat/internal/mockserver"
	"github.com/Lolalalalo-o/autocombat/internal/version"
	"github.com/Lolalalalo-o/autocombat/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var configPath string
	var noAuth bool
	flag.StringVar(&configPath, "config", "", "Path to YAML config (default $"+config.EnvConfigPath+")")
	flag.BoolVar(&noAuth, "no-auth", false, "Accept requests without a bearer token")
	flag.Parse()

	logger.Log.Info("Starting autocombat mock RPC...")
	logger.Log.Info(version.String())

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatal("Failed to load config: ", err)
	}

	var verifier *auth.Verifier
	if !noAuth {
		if verifier, err = auth.NewVerifier(cfg.Account.Secret); err != nil {
			logger.Log.Fatal("Failed to init token verifier: ", err)
		}
	} else {
		logger.Log.Warn("Authorization disabled")
	}

	// 2. Состояние мока
	world := mockserver.NewWorld(cfg.Mock.Monsters)
	srv := mockserver.New(world, verifier)

	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Запуск сервера
	if err := srv.Run(ctx, fmt.Sprintf(":%d", cfg.Mock.Port)); err != nil {
		logger.Log.Fatal("Server error: ", err)
	}

	logger.Log.WithField("accounts", len(world.Accounts())).Info("Done.")
}
