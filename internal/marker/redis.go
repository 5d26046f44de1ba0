package marker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// bumpScript stores ARGV[1] only when it is greater than the current value.
// Values are compared as decimal strings, length first: Lua numbers are
// doubles and drop the low bits of unix nanoseconds.
var bumpScript = redis.NewScript(`
local function digits(v)
	local s = string.gsub(v, '^0+', '')
	return s
end
local cur = digits(redis.call('GET', KEYS[1]) or '0')
local nxt = digits(ARGV[1])
if #nxt > #cur or (#nxt == #cur and nxt > cur) then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// RedisStore keeps the marker as unix nanoseconds under a single key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	owned  bool
}

// NewRedisStore wraps client; the caller keeps ownership of it.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, key: key, owned: true}, nil
}

func (s *RedisStore) LastUpdatedAt(ctx context.Context) (time.Time, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read marker %s: %w", s.key, err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse marker %s value %q: %w", s.key, raw, err)
	}
	return time.Unix(0, nanos), nil
}

// Bump never moves the marker backwards. Times before the epoch are ignored.
func (s *RedisStore) Bump(ctx context.Context, at time.Time) error {
	if at.UnixNano() < 0 {
		return nil
	}
	if err := bumpScript.Run(ctx, s.client, []string{s.key}, at.UnixNano()).Err(); err != nil {
		return fmt.Errorf("bump marker %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
