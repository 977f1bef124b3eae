// Package daemon wires configuration, the Pending-Session DB, the
// Index Store, and the transport Supervisor into the running histd
// process.
package daemon

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ehrlich-b/histd/internal/config"
	"github.com/ehrlich-b/histd/internal/indexstore"
	"github.com/ehrlich-b/histd/internal/pendingdb"
	"github.com/ehrlich-b/histd/internal/transport"
)

// Run loads configuration, opens the durable stores, and blocks until
// the Supervisor shuts down (signal or an explicit Stop datagram).
func Run(log *slog.Logger) error {
	paths, err := config.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}

	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("starting histd", "socket", paths.SocketPath, "data_dir", paths.DataDir, "cache_dir", paths.CacheDir, "log_level", cfg.LogLevel)

	if err := config.EnsureDir(paths.DataDir); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	if err := config.EnsureDir(filepath.Dir(paths.SocketPath)); err != nil {
		return fmt.Errorf("ensure socket dir: %w", err)
	}

	pendingDir := filepath.Join(paths.CacheDir, "pending")
	if err := config.EnsureDir(pendingDir); err != nil {
		return fmt.Errorf("ensure pending db dir: %w", err)
	}
	pdb, err := pendingdb.Open(pendingDir)
	if err != nil {
		return fmt.Errorf("open pending db: %w", err)
	}
	defer pdb.Close()

	store := indexstore.New(paths.DataDir)

	sup := &transport.Supervisor{
		SocketPath: paths.SocketPath,
		PendingDB:  pdb,
		Store:      store,
		Log:        log,
	}
	return sup.Run()
}
