package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/cardcache"
	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/config"
	"github.com/Liars-Bar/Liars-bar/internal/httpapi"
	"github.com/Liars-Bar/Liars-bar/internal/hub"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
	"github.com/Liars-Bar/Liars-bar/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	var identity ledger.Identity
	if cfg.SessionKey != "" {
		identity, err = ledger.IdentityFromBase58(cfg.SessionKey)
		if err != nil {
			logger.Fatal("bad SESSION_KEY", zap.Error(err))
		}
	} else {
		identity = ledger.GenerateIdentity()
		logger.Info("generated ephemeral session identity",
			zap.String("identity", string(identity.PublicKey)))
	}

	var cache confidential.CacheStore
	if cfg.DatabaseURL != "" {
		store, err := cardcache.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("open card cache", zap.Error(err))
		}
		cache = store
	} else {
		logger.Info("no DATABASE_URL, card cache is in-memory only")
		cache = cardcache.NewMemoryStore()
	}

	rpc := ledger.NewClient(cfg.RPCURL)
	decrypt := confidential.NewDecryptClient(cfg.MPCURL)
	programID := ledger.Address(cfg.ProgramID)
	pipeline := confidential.NewPipeline(rpc, decrypt, cache, programID,
		cfg.ConfirmTimeout, cfg.SettleDelay, logger)

	factory := func(ctx context.Context, tableID uint64) (*table.Session, error) {
		return table.NewSession(ctx, table.Config{
			TableID:        tableID,
			Identity:       identity,
			ProgramID:      programID,
			Ledger:         rpc,
			Pipeline:       pipeline,
			PollInterval:   cfg.PollInterval,
			DebounceWindow: cfg.DebounceWindow,
			HealthInterval: cfg.HealthInterval,
			Logger:         logger,
		})
	}

	h := hub.NewHub(context.Background(), factory)
	handler := httpapi.SetupRoutes(h)

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
