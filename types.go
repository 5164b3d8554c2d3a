package halolight

import (
	"context"

	"github.com/jpalmerr/halolight/internal/model"
	"github.com/jpalmerr/halolight/internal/storage"
)

// Notification is an inbox entry delivered by the push channel.
type Notification = model.Notification

// User is a console account.
type User = model.User

// Storage is the key-value store console state is persisted in. Values are
// JSON strings; implementations must be safe for concurrent use.
type Storage = storage.Storage

// RedisStorageConfig configures [ConnectRedisStorage].
type RedisStorageConfig = storage.RedisConfig

// RateLimits are request budgets per minute.
type RateLimits struct {
	// GeneralPerMinute applies per signed-in user to the protected API.
	GeneralPerMinute int
	// AuthPerMinute applies per client address to login, register and token.
	AuthPerMinute int
}

// DefaultRateLimits returns 120 requests per minute for the API and 10 per
// minute for sign-in.
func DefaultRateLimits() RateLimits {
	return RateLimits{GeneralPerMinute: 120, AuthPerMinute: 10}
}

// NewMemoryStorage returns storage that lives as long as the process.
func NewMemoryStorage() Storage {
	return storage.NewMemory()
}

// OpenFileStorage returns storage backed by a JSON document at path. The
// file is created on first write.
func OpenFileStorage(path string) (Storage, error) {
	return storage.OpenFile(path)
}

// ConnectRedisStorage returns storage backed by Redis. It pings the server
// before returning. Call Close on the result to release the connection.
func ConnectRedisStorage(ctx context.Context, cfg RedisStorageConfig) (*storage.Redis, error) {
	return storage.ConnectRedis(ctx, cfg)
}
