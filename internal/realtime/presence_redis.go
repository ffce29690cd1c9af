package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:user:"
	presenceTTL       = 90 * time.Second
)

// RedisPresence keys each online subject with a TTL so a crashed instance
// cannot leave ghosts behind. The hub refreshes the key on every room join.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func (p *RedisPresence) MarkOnline(ctx context.Context, userID int64) error {
	return p.client.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

func (p *RedisPresence) MarkOffline(ctx context.Context, userID int64) error {
	return p.client.Del(ctx, presenceKey(userID)).Err()
}

func (p *RedisPresence) FilterOnline(ctx context.Context, userIDs []int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return []int64{}, nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, presenceKey(id))
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	online := make([]int64, 0, len(userIDs))
	for i, value := range values {
		if value != nil {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("%s%d", presenceKeyPrefix, userID)
}
