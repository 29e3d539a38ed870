package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/monpay/relayer/core"
	"github.com/monpay/relayer/ports"
)

// consumeNonceScript rotates the nonce only if the pending value still
// matches, making consumption a single atomic step on the Redis side.
var consumeNonceScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'nonce')
if cur ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'nonce', ARGV[2])
redis.call('HSET', KEYS[1], 'nonce_issued_at', ARGV[3])
redis.call('HSET', KEYS[1], 'session_issued_at', ARGV[3])
return 1
`)

// RedisDirectory is a Redis implementation of the AccountDirectory interface.
// Each account is a hash keyed by its canonical address.
type RedisDirectory struct {
	client *redis.Client
	prefix string
}

// NewRedisDirectory creates a new Redis account directory
func NewRedisDirectory(client *redis.Client) ports.AccountDirectory {
	return &RedisDirectory{
		client: client,
		prefix: "monpay:account:",
	}
}

func (d *RedisDirectory) key(address string) string {
	return d.prefix + address
}

func (d *RedisDirectory) Get(ctx context.Context, address string) (*core.Account, error) {
	fields, err := d.client.HGetAll(ctx, d.key(address)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrNotFound
	}

	acct := &core.Account{
		Address: address,
		Nonce:   fields["nonce"],
	}
	acct.NonceIssuedAt = parseTime(fields["nonce_issued_at"])
	acct.SessionIssuedAt = parseTime(fields["session_issued_at"])
	acct.CreatedAt = parseTime(fields["created_at"])
	return acct, nil
}

func (d *RedisDirectory) PutNonce(ctx context.Context, address, nonce string, issuedAt time.Time) error {
	key := d.key(address)
	stamp := issuedAt.UTC().Format(time.RFC3339Nano)

	pipe := d.client.TxPipeline()
	pipe.HSetNX(ctx, key, "created_at", stamp)
	pipe.HSet(ctx, key, "nonce", nonce, "nonce_issued_at", stamp)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

func (d *RedisDirectory) ConsumeNonce(ctx context.Context, address, expected, next string, at time.Time) error {
	stamp := at.UTC().Format(time.RFC3339Nano)

	ok, err := consumeNonceScript.Run(ctx, d.client, []string{d.key(address)}, expected, next, stamp).Int()
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	if ok != 1 {
		return core.ErrNoPendingChallenge
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
