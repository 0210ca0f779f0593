package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/config"
	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/kv"
	"github.com/GoSim-25-26J-441/playground-sync/internal/storage/postgres"
)

// OpenLocalBackend opens the storage primitive under the device store.
func OpenLocalBackend(ctx context.Context, cfg config.LocalConfig) (kv.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return kv.NewMemoryBackend(), nil
	case "redis":
		return kv.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	case "sqlite", "":
		return kv.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown local backend %q", cfg.Backend)
	}
}

// Remote is the opened cloud store plus what it needs to shut down.
// Store is nil when the provider is "none".
type Remote struct {
	Store repository.RemoteStore
	conn  *postgres.Conn
}

func (r *Remote) Close() error {
	if r == nil || r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// OpenRemote connects the configured cloud store. Every call it serves is
// scoped to the user users reports.
func OpenRemote(ctx context.Context, cfg *config.RemoteConfig, users auth.UserSource, logger *zap.Logger) (*Remote, error) {
	switch cfg.Provider {
	case "none", "":
		return &Remote{}, nil

	case "postgres":
		conn, err := postgres.NewConnection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := postgres.NewMigrator(conn.DB, logger).Run(ctx); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		logger.Info("remote store connected", zap.String("provider", "postgres"), zap.String("driver", postgres.DriverName(cfg.Driver)))
		return &Remote{Store: repository.NewPostgresRemote(conn.DB, users), conn: conn}, nil

	case "supabase":
		client, err := repository.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, err
		}
		logger.Info("remote store connected", zap.String("provider", "supabase"))
		return &Remote{Store: repository.NewSupabaseRemote(client, users)}, nil

	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Provider)
	}
}
