// Package redis publishes audit records to a Redis stream with XADD so
// other services can consume them. It is write-only; pair it with the
// memory or postgres store when records must be read back.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rhuss/askdata/pkg/storage"
)

// DefaultStream is the stream key used when Config.Stream is empty.
const DefaultStream = "askdata:audit"

// Config configures the stream sink.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen trims the stream approximately to this many entries (0 keeps
	// everything).
	MaxLen int64
}

// Sink writes records to a Redis stream.
type Sink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

var _ storage.Sink = (*Sink)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(rdb, cfg.Stream, cfg.MaxLen), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, stream string, maxLen int64) *Sink {
	if stream == "" {
		stream = DefaultStream
	}
	return &Sink{rdb: rdb, stream: stream, maxLen: maxLen, now: time.Now}
}

// Save appends r to the stream. Each entry carries the record id, tenant,
// outcome and the full record as JSON under "record".
func (s *Sink) Save(ctx context.Context, r *storage.Record) error {
	rec := *r
	rec.Tenant = storage.TenantOf(ctx, r)
	if rec.Created.IsZero() {
		rec.Created = s.now()
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":      rec.ID,
			"tenant":  rec.Tenant,
			"outcome": rec.Outcome,
			"record":  string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Decode parses the record of a stream message written by Save.
func Decode(msg redis.XMessage) (*storage.Record, error) {
	raw, ok := msg.Values["record"].(string)
	if !ok {
		return nil, fmt.Errorf("stream message %s has no record field", msg.ID)
	}
	var rec storage.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding stream message %s: %w", msg.ID, err)
	}
	return &rec, nil
}

// Close closes the client.
func (s *Sink) Close() error {
	return s.rdb.Close()
}
