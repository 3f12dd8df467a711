package main

import (
	"log"
	"os"

	"github.com/augurml/augur/internal/api"
	"github.com/augurml/augur/internal/config"
	"github.com/augurml/augur/internal/discovery"
	"github.com/augurml/augur/internal/dispatch"
	"github.com/augurml/augur/internal/engine/builtin"
	"github.com/augurml/augur/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("augur: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"registry_url", cfg.RegistryURL,
		"service_fallback", cfg.HasServiceFallback(),
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	registry, err := builtin.Registry()
	if err != nil {
		log.Fatalf("failed to register engines: %v", err)
	}

	locator := discovery.NewLocator(cfg.RegistryURL, logger)
	factory := dispatch.NewFactory(cfg, locator, registry, logger)

	srv := api.NewServer(cfg.ListenAddr, db, registry, factory, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
