package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
)

// ErrUnavailable wraps any failure the circuit breaker reports, including
// the breaker's own open-state rejection. Callers treat it as non-fatal:
// the session stays up, the directory simply lagged.
var ErrUnavailable = errors.New("directory: unavailable")

// deleteIfOwner is a compare-and-delete: it only removes the key if the
// stored record's session_id still matches the caller's, so a superseded
// session's close path never wipes a newer login's record.
const deleteIfOwner = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local ok, rec = pcall(cjson.decode, raw)
if not ok or rec.session_id ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

// RedisOptions configures the Redis-backed Client.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// circuit breaker. Zero means 5.
	BreakerMaxFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open before
	// allowing a trial request through.
	BreakerOpenTimeout time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.BreakerMaxFailures == 0 {
		o.BreakerMaxFailures = 5
	}
	if o.BreakerOpenTimeout == 0 {
		o.BreakerOpenTimeout = 30 * time.Second
	}
	return o
}

// RedisClient is the Client implementation backed by go-redis, guarded by
// a gobreaker circuit breaker so a down directory fails fast instead of
// piling up blocked goroutines.
type RedisClient struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewRedisClient dials lazily; go-redis connects on first use.
func NewRedisClient(opts RedisOptions, log *slog.Logger) *RedisClient {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "directory-redis",
		Timeout: opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("directory circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &RedisClient{rdb: rdb, breaker: breaker, log: log}
}

func (c *RedisClient) Put(ctx context.Context, userID string, record model.DirectoryRecord, ttl time.Duration) error {
	_, err := c.breaker.Execute(func() (any, error) {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		return nil, c.rdb.Set(ctx, model.DirectoryKey(userID), raw, ttl).Err()
	})
	return wrapBreakerErr(err)
}

func (c *RedisClient) Delete(ctx context.Context, userID, ownerSessionID string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.rdb.Eval(ctx, deleteIfOwner, []string{model.DirectoryKey(userID)}, ownerSessionID).Err()
	})
	return wrapBreakerErr(err)
}

func (c *RedisClient) Lookup(ctx context.Context, userID string) (model.DirectoryRecord, bool, error) {
	v, err := c.breaker.Execute(func() (any, error) {
		raw, err := c.rdb.Get(ctx, model.DirectoryKey(userID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return model.DirectoryRecord{}, false, wrapBreakerErr(err)
	}
	if v == nil {
		return model.DirectoryRecord{}, false, nil
	}

	var record model.DirectoryRecord
	if err := json.Unmarshal(v.([]byte), &record); err != nil {
		return model.DirectoryRecord{}, false, fmt.Errorf("directory: decode record: %w", err)
	}
	return record, true, nil
}

// Close releases the underlying connection pool.
func (c *RedisClient) Close() error { return c.rdb.Close() }

func wrapBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
