package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/mlane/campaignlens/internal/config"
	"github.com/mlane/campaignlens/internal/db"
)

// New resolves the configured Storage implementation once at process start.
// Mode "postgres" connects a pool and runs migrations; anything else falls
// back to the in-memory store.
func New(ctx context.Context, cfg config.Config) (Storage, error) {
	switch cfg.Storage.Mode {
	case "postgres", "database":
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect storage database: %w", err)
		}
		if err := db.RunMigrations(conn.Pool); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate storage database: %w", err)
		}
		log.Printf("[Storage] postgres mode (%s:%d/%s)", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		return NewPostgresStorage(conn.Pool), nil
	case "", "memory":
		log.Printf("[Storage] memory mode")
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}
}
