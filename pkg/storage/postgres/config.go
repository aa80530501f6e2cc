package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the audit store connection pool.
type Config struct {
	// DSN, e.g. "postgres://askdata:secret@db:5432/askdata?sslmode=require".
	DSN string

	// Pool bounds. Zero values mean 10 open, 1 idle, 5 minute lifetime.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// StatementTimeout bounds every audit query on the server side.
	// Zero leaves the server default.
	StatementTimeout time.Duration

	// MigrateOnStart applies pending migrations in New.
	MigrateOnStart bool
}

const applicationName = "askdata-audit"

// poolConfig parses the DSN and applies the pool settings.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	pc.MaxConns = 10
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pc.MinConns = 1
	if c.MinConns > 0 {
		pc.MinConns = min(c.MinConns, pc.MaxConns)
	}
	pc.MaxConnLifetime = 5 * time.Minute
	if c.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = c.MaxConnLifetime
	}

	params := pc.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = applicationName
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = fmt.Sprint(c.StatementTimeout.Milliseconds())
	}
	return pc, nil
}
