package service

import (
	"context"
	"fmt"
	"log"

	"github.com/hodei-project/hodei-authz/backend/internal/invalidation"
	"github.com/hodei-project/hodei-authz/backend/internal/policystore"
)

// Builder assembles a Facade from connection strings through chained
// setter methods; Build connects and applies the collected settings.
type Builder struct {
	dsn             string
	redisURL        string
	logger          *log.Logger
	skipAutoMigrate bool
}

// NewBuilder starts a Builder with no backing store or bus configured.
func NewBuilder() *Builder {
	return &Builder{logger: log.Default()}
}

// WithPostgres configures the durable policy store.
func (b *Builder) WithPostgres(dsn string) *Builder {
	b.dsn = dsn
	return b
}

// WithRedis configures the invalidation bus.
func (b *Builder) WithRedis(url string) *Builder {
	b.redisURL = url
	return b
}

// WithLogger overrides the default stdlib logger.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithoutAutoMigrate skips running the schema migration in Build; use
// when migrations are managed out of band.
func (b *Builder) WithoutAutoMigrate() *Builder {
	b.skipAutoMigrate = true
	return b
}

// Build connects to Postgres and Redis, runs the migration unless
// disabled, performs the initial load, and returns a ready Facade.
func (b *Builder) Build(ctx context.Context) (*Facade, error) {
	if b.dsn == "" {
		return nil, fmt.Errorf("service: WithPostgres is required")
	}
	if b.redisURL == "" {
		return nil, fmt.Errorf("service: WithRedis is required")
	}

	store, err := policystore.Open(b.dsn)
	if err != nil {
		return nil, err
	}
	if !b.skipAutoMigrate {
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
	}

	bus, err := invalidation.NewRedisBus(b.redisURL, b.logger)
	if err != nil {
		return nil, err
	}

	f := New(store, bus, WithLogger(b.logger))
	if err := f.ReloadFromStore(ctx); err != nil {
		return nil, err
	}
	return f, nil
}
