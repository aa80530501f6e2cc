// Package postgres provides a PostgreSQL audit store. It uses pgx/v5 for
// connection pooling and JSONB for attempt summaries.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/askdata/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, now: time.Now}
	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// Save inserts a record. The ID must be a UUID.
func (s *Store) Save(ctx context.Context, r *storage.Record) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return fmt.Errorf("audit record id %q: %w", r.ID, err)
	}
	tenant := storage.TenantOf(ctx, r)
	created := r.Created
	if created.IsZero() {
		created = s.now()
	}
	attempts, err := json.Marshal(nonNil(r.Attempts))
	if err != nil {
		return fmt.Errorf("marshaling attempts: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_records (
			id, tenant_id, question, answer, code, outcome, rounds, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		pgtype.UUID{Bytes: id, Valid: true}, tenant, r.Question, r.Answer, r.Code,
		r.Outcome, r.Rounds, attempts, created,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id::text, tenant_id, question, answer, code, outcome, rounds, attempts, created_at
	FROM audit_records`

// Get returns a record by ID. Malformed IDs are reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	query := selectColumns + " WHERE id = $1"
	args := []any{pgtype.UUID{Bytes: uid, Valid: true}}
	if tenant := storage.TenantFrom(ctx); tenant != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenant)
	}

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	query := selectColumns + " WHERE TRUE"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if tenant := storage.TenantFrom(ctx); tenant != "" {
		query += " AND tenant_id = " + arg(tenant)
	}
	if opts.Outcome != "" {
		query += " AND outcome = " + arg(opts.Outcome)
	}
	if !opts.Before.IsZero() {
		query += " AND created_at < " + arg(opts.Before)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(opts.EffectiveLimit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (*storage.Record, error) {
	var rec storage.Record
	var attempts []byte
	if err := row.Scan(
		&rec.ID, &rec.Tenant, &rec.Question, &rec.Answer, &rec.Code,
		&rec.Outcome, &rec.Rounds, &attempts, &rec.Created,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attempts, &rec.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshaling attempts: %w", err)
	}
	return &rec, nil
}

func nonNil(a []storage.Attempt) []storage.Attempt {
	if a == nil {
		return []storage.Attempt{}
	}
	return a
}

// isDuplicateKey reports a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
