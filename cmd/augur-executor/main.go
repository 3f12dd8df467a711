package main

import (
	"log"
	"os"

	"github.com/augurml/augur/internal/config"
	"github.com/augurml/augur/internal/engine/builtin"
	"github.com/augurml/augur/internal/executor"
	"github.com/augurml/augur/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("augur-executor: starting",
		"listen_addr", cfg.ExecutorAddr,
		"db_path", cfg.DBPath,
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

	srv := executor.NewServer(cfg.ExecutorAddr, db, registry, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
