package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisBackend はRedisにセッションを保持するBackend。
// 属性はJSONとして保存し、有効期限はRedisのTTLに任せる。
type RedisBackend struct {
	client redis.UniversalClient
}

// compile-time interface check
var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend はRedisBackendを生成する。
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisClient はREDIS_URL形式のURLからクライアントを生成する。
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Load はセッション属性を取得する。
func (b *RedisBackend) Load(ctx context.Context, id string) (map[string]string, bool, error) {
	raw, err := b.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return values, true, nil
}

// Save は属性を上書き保存し、TTLを更新する。
func (b *RedisBackend) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := b.client.Set(ctx, redisKeyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// Ping は接続確認を行う。
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
