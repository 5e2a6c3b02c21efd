package redis

import (
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/atelierhq/marketapi/base/ctx"
)

const (
	// Forever is used as expire duration for keys without expiration
	Forever = time.Duration(-1)
)

var (
	// ErrNotFound is returned when the key does not exist
	ErrNotFound = redis.ErrNil

	// ErrPoolUnavailable is returned when no usable pool is configured
	ErrPoolUnavailable = errors.New("redis pool is not available")
)

// Service wraps the redis commands used across the repo
type Service interface {
	// Get gets the value of key
	Get(context ctx.Ctx, key string) (val []byte, err error)

	// Set sets key to hold val, expire sets the ttl. Use Forever to skip
	// the expiration.
	Set(context ctx.Ctx, key string, val []byte, expire time.Duration) error

	// Del removes the given keys and returns the number of keys removed
	Del(context ctx.Ctx, ks ...string) (int, error)
}
