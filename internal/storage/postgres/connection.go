package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/GoSim-25-26J-441/playground-sync/config"
)

// DriverName maps the configured driver to its database/sql registration.
func DriverName(driver string) string {
	if driver == "pgx" {
		return "pgx"
	}
	return "postgres"
}

// Conn is an open remote database. With the pgx driver the *sql.DB sits on
// a pgxpool.Pool that Close also releases.
type Conn struct {
	DB   *sql.DB
	pool *pgxpool.Pool
}

func (c *Conn) Close() error {
	err := c.DB.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

func NewConnection(ctx context.Context, cfg *config.RemoteConfig) (*Conn, error) {
	dsn := DSN(&cfg.Database)

	conn, err := open(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.DB.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

func open(ctx context.Context, driver, dsn string) (*Conn, error) {
	if DriverName(driver) == "pgx" {
		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}
		poolCfg.MaxConns = 25
		poolCfg.MaxConnIdleTime = 5 * time.Minute

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &Conn{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Conn{DB: db}, nil
}
