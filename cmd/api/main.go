package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"giftmarket/internal/account"
	"giftmarket/internal/api"
	"giftmarket/internal/config"
	"giftmarket/internal/engine"
	"giftmarket/internal/logger"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
	"giftmarket/internal/persistence"
	"giftmarket/internal/rates"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	var (
		accountStore      account.Store
		orderStore        order.Store
		notificationStore notification.Store
	)

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := persistence.Open(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		accountStore = db.Accounts()
		orderStore = db.Orders()
		notificationStore = db.Notifications()
		log.Info("using sqlite store", zap.String("path", cfg.Store.SQLitePath))

	default:
		accountStore = account.NewMemoryStore()
		orderStore = order.NewMemoryStore()
		notificationStore = notification.NewMemoryStore()
		log.Info("using in-memory store")
	}

	sink := notification.NewSink(notificationStore, log)
	accounts := account.NewService(accountStore, sink, cfg.BootstrapAdmin)

	eng := engine.New(engine.Config{
		ShardCount: cfg.Engine.Shards,
		QueueSize:  cfg.Engine.QueueSize,
	}, accountStore, orderStore, sink, log)
	defer eng.Close()

	ratesClient := rates.New(log)

	handler := api.NewHandler(accounts, eng, orderStore, notificationStore, ratesClient, log)
	router := api.NewRouter(handler, log)

	log.Info("starting server", zap.String("addr", cfg.Addr))
	return router.Run(cfg.Addr)
}
