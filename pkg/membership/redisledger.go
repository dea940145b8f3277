package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLedger struct {
	client    redis.UniversalClient
	retention time.Duration
	prefix    string
}

// NewRedisLedger returns a Ledger backed by Redis, for deployments where
// webhook deliveries land on multiple processes. Keys expire via TTL, which
// gives bounded retention without a sweeper. Pass zero retention to use
// DefaultLedgerRetention.
func NewRedisLedger(client redis.UniversalClient, retention time.Duration) Ledger {
	if client == nil {
		panic("membership: redis client is required")
	}
	if retention <= 0 {
		retention = DefaultLedgerRetention
	}
	return &redisLedger{
		client:    client,
		retention: retention,
		prefix:    "membership:event:",
	}
}

func (l *redisLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("dedup ledger read: %w", err)
	}
	return n > 0, nil
}

func (l *redisLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.Set(ctx, l.prefix+eventID, 1, l.retention).Err(); err != nil {
		return fmt.Errorf("dedup ledger write: %w", err)
	}
	return nil
}
