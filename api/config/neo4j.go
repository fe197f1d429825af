package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/dap/neo4jdriver"
)

// Store is the process-wide DAP backend. It's set by LoadStore and read by
// every handler; handlers never construct their own driver.
var Store dap.DAP

// LoadStore initializes the primary neo4jdriver-backed DAP from
// environment variables.
func LoadStore(ctx context.Context, log *slog.Logger) error {
	cfg := neo4jdriver.Config{
		URI:      os.Getenv("NEO4J_URI"),
		Database: os.Getenv("NEO4J_DATABASE"),
		Username: os.Getenv("NEO4J_USERNAME"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	}
	if cfg.URI == "" {
		cfg.URI = "bolt://localhost:7687"
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Username == "" {
		cfg.Username = "neo4j"
	}

	store, err := neo4jdriver.Open(ctx, log, cfg, clockwork.NewRealClock())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	Store = store
	log.Info("connected to graph store", "uri", cfg.URI, "database", cfg.Database)
	return nil
}

// CloseStore releases the backend's driver resources.
func CloseStore(ctx context.Context) error {
	if Store == nil {
		return nil
	}
	return Store.Close(ctx)
}
