// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"whisper.share/internal/models"
)

var _ Store = (*RedisStore)(nil)

const expiryIndexKey = "secrets:expiry"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// createScript inserts the record and its expiry-index entry only when the
// token is not already taken, so uniqueness and the index stay consistent.
var createScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
	return 1
`)

func (r *RedisStore) Create(ctx context.Context, secret *models.Secret) error {
	data, err := encode(secret)
	if err != nil {
		return err
	}

	score := strconv.FormatInt(secret.ExpiresAt.UTC().Unix(), 10)
	created, err := createScript.Run(ctx, r.client,
		[]string{secretKey(secret.Token), expiryIndexKey},
		data, score, secret.Token,
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrConflict
	}
	return nil
}

func (r *RedisStore) FindByToken(ctx context.Context, token string) (*models.Secret, error) {
	data, err := r.client.Get(ctx, secretKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return decode(data)
}

// purgeScript deletes every record whose expiry score is <= now together
// with its index entry, and reports how many were removed. Lua scripts run
// atomically, so a concurrent FindByToken never sees the index half-updated.
var purgeScript = redis.NewScript(`
	local tokens = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
	for _, token in ipairs(tokens) do
		redis.call('DEL', 'secret:' .. token)
	end
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
	return #tokens
`)

func (r *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := strconv.FormatInt(now.UTC().Unix(), 10)
	count, err := purgeScript.Run(ctx, r.client, []string{expiryIndexKey}, cutoff).Int()
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func secretKey(token string) string {
	return "secret:" + token
}

func encode(secret *models.Secret) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(secret); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Secret, error) {
	var secret models.Secret
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&secret); err != nil {
		return nil, err
	}
	secret.ExpiresAt = secret.ExpiresAt.UTC()
	secret.CreatedAt = secret.CreatedAt.UTC()
	return &secret, nil
}
