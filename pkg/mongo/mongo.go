package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds MongoDB connection settings.
type Config struct {
	ConnectionURL  string        `env:"MONGODB_URL,required"`
	Database       string        `env:"MONGODB_DATABASE" envDefault:"membergate"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

var ErrNotReady = errors.New("mongo is not ready")

// Connect establishes a MongoDB client, retrying until the server answers
// a ping or the attempts run out.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrNotReady, lastErr)
}

// Collection connects and returns the named collection from the configured
// database, for wiring membership.NewMongoStore in one call.
func Collection(ctx context.Context, cfg Config, name string) (*mongo.Collection, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(cfg.Database).Collection(name), nil
}
