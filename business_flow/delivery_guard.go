package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryGuard detects redelivered webhooks so their mutations are applied once
type DeliveryGuard interface {
	// FirstDelivery reports whether key is seen for the first time within the guard window
	FirstDelivery(ctx context.Context, key string) (bool, error)
	// Release forgets key so a redelivery is applied again
	Release(ctx context.Context, key string) error
}

// RedisDeliveryGuard remembers delivery keys in Redis with SET NX and a TTL
type RedisDeliveryGuard struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeliveryGuard(rc *redis.Client, prefix string, ttl time.Duration) *RedisDeliveryGuard {
	return &RedisDeliveryGuard{rc: rc, prefix: prefix, ttl: ttl}
}

// FirstDelivery claims key. On Redis failure it reports true so the mutation is still applied.
func (g *RedisDeliveryGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	ok, err := g.rc.SetNX(ctx, g.prefix+"voice:delivery:"+key, 1, g.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("delivery guard: %w", err)
	}
	return ok, nil
}

// Release deletes a claimed key. Called when the claimed mutation did not commit.
func (g *RedisDeliveryGuard) Release(ctx context.Context, key string) error {
	if err := g.rc.Del(ctx, g.prefix+"voice:delivery:"+key).Err(); err != nil {
		return fmt.Errorf("delivery guard: %w", err)
	}
	return nil
}

// deliveryKey identifies one meaningful webhook event of a call
func deliveryKey(call CallContext, d Decision) string {
	h := sha256.Sum256([]byte(call.Transcript + "\x00" + call.Digits))
	return fmt.Sprintf("%s:%s:%s:%d:%s", call.CallSid, d.From, d.Trigger, call.Attempt, hex.EncodeToString(h[:8]))
}
