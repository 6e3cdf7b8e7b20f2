package tenantlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultLease     = 30 * time.Second
	defaultRetryWait = 50 * time.Millisecond
)

// unlockScript deletes the key only while it still carries our token, so an
// expired lease taken over by another process is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every API and worker process pointed at the same
// Redis instance. Each hold is a lease that expires after Lease.
type Redis struct {
	client    *redis.Client
	prefix    string
	lease     time.Duration
	retryWait time.Duration
	logger    *slog.Logger
}

type RedisOption func(*Redis)

func WithLease(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.lease = d
		}
	}
}

func WithRetryWait(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retryWait = d
		}
	}
}

func WithLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRedis(client *redis.Client, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		prefix:    prefix,
		lease:     defaultLease,
		retryWait: defaultRetryWait,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Redis) key(tenantID uuid.UUID) string {
	return r.prefix + "tenant:" + tenantID.String() + ":lock"
}

func (r *Redis) Acquire(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	key := r.key(tenantID)
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}

			return nil, fmt.Errorf("acquiring tenant lock %s: %w", tenantID, err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(r.retryWait):
		}
	}

	released := false

	return func() {
		if released {
			return
		}

		released = true

		// The caller's context may already be done; the release must still run.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := unlockScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("releasing tenant lock", "tenant_id", tenantID, "error", err)
		}
	}, nil
}
