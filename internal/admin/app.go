package admin

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/seb7887/gofw/eventbus"
	"github.com/seb7887/gofw/sietch"
	"github.com/seb7887/gofw/undeletable"
)

// App holds the records provider of one soft-deletable table
type App struct {
	Records *undeletable.Provider[undeletable.Model]
	Table   string

	pool    *pgxpool.Pool
	logger  *sietch.ZapLogger
	closers []func() error
}

// NewApp connects to the database and, when configured, to Redis and NATS
func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	logger, err := sietch.NewZapLogger(sietch.LogLevel(cfg.Log.Level), cfg.Log.Pretty)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	pool, err := sietch.NewCockroachDBConnPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	app := &App{Table: cfg.Database.Table, pool: pool, logger: logger}
	app.closers = append(app.closers, func() error { pool.Close(); return nil })

	conn, err := sietch.NewCockroachDBConnector[undeletable.Model](pool, cfg.Database.Table, undeletable.IDOf[undeletable.Model])
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	conn.SetLogger(logger)

	var store sietch.Store[undeletable.Model, string] = conn
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		app.closers = append(app.closers, client.Close)
		cache := sietch.NewRedisCache[undeletable.Model, string](client, cfg.Redis.Prefix+":"+cfg.Database.Table, cfg.Redis.TTL)
		cached := sietch.NewCachedStore[undeletable.Model, string](conn, cache, undeletable.ColumnID, undeletable.IDOf[undeletable.Model])
		cached.SetLogger(logger)
		store = cached
	}

	opts := append(cfg.Undeletable.Options(),
		undeletable.WithEntityName(cfg.Database.Table),
		undeletable.WithLogger(logger),
	)
	records, err := undeletable.NewProvider[undeletable.Model](store, opts...)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Records = records

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewNatsBus[undeletable.DeletionMessage](cfg.NATS.URL, nats.Name("undeletable"))
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("nats: %w", err)
		}
		app.closers = append(app.closers, bus.Close)
		undeletable.PublishDeletions(records, bus, cfg.NATS.Topic)
	}

	return app, nil
}

// Migrate creates the table and its live row indexes
func (a *App) Migrate(ctx context.Context) error {
	def, err := undeletable.TableDef[undeletable.Model](a.Table)
	if err != nil {
		return err
	}
	return sietch.CreateTable(ctx, a.pool, def)
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return firstErr
}
