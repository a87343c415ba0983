package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// DB wraps database/sql with the dialect so repositories can write their
// queries once with ? placeholders.
type DB struct {
	*sql.DB
	dialect string
}

// rebind rewrites ? placeholders to $1..$n for Postgres. SQLite takes ?
// as-is.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open creates a pgx pool and wraps it as database/sql.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, *pgxpool.Pool, error) {
	logger.Info("db.connect.start", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docpipe"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect.failed", "error", err)
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("db.connect.ok")
	return &DB{DB: db, dialect: dialectPostgres}, pool, nil
}

// OpenSQLite opens an embedded SQLite database. Used for local runs and
// tests; ":memory:" gives a throwaway database.
func OpenSQLite(dsn string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("db.sqlite.open_failed", "dsn", dsn, "error", err)
		return nil, err
	}
	// The sqlite driver serializes writes through one connection.
	db.SetMaxOpenConns(1)
	return &DB{DB: db, dialect: dialectSQLite}, nil
}

// Close closes the database connections gracefully.
func Close(db *DB, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("db.close.start")
	if db != nil {
		if err := db.DB.Close(); err != nil {
			logger.Error("db.close.failed", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("db.close.done")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("db.ping.start")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("db.ping.ok")
	return nil
}
