package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"fytemarket/config"
	"fytemarket/events"
	"fytemarket/market"
	"fytemarket/observability/logging"
	"fytemarket/rpc"
	"fytemarket/state"
	"fytemarket/storage"
	"fytemarket/token"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the marketd configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("marketd", "").Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	env := os.Getenv("MARKET_ENV")
	if env == "" {
		env = cfg.Env
	}
	logger := logging.Setup("marketd", env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	kv := state.NewManager(db)
	ledger := token.New(kv, cfg.TokenSymbol)
	store := market.NewStore(kv)
	roles := market.NewRoleSet(kv)
	engine := market.NewEngine(store, roles, ledger, cfg.Owner(), cfg.Vault())

	hub := events.NewHub()
	engine.SetEmitter(events.MultiEmitter{hub, events.LogEmitter{Logger: logger}})

	server := rpc.NewServer(engine, ledger, kv, hub, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("marketd starting",
		"rpc", cfg.RPCAddress,
		"token", ledger.Symbol(),
		"owner", cfg.OwnerAddress,
		"vault", cfg.VaultAddress,
	)
	if err := server.Start(ctx, cfg.RPCAddress); err != nil {
		logger.Error("rpc server terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("marketd stopped")
}
