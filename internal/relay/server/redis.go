package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cachet/internal/domain"
)

// RedisQueue keeps backlogs in a Redis list per recipient so a relay
// restart does not drop queued envelopes.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue { return &RedisQueue{rdb: rdb} }

func backlogKey(to domain.Username) string { return fmt.Sprintf("backlog:%s", to) }

func (q *RedisQueue) Push(ctx context.Context, to domain.Username, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, backlogKey(to), data).Err()
}

func (q *RedisQueue) Peek(ctx context.Context, to domain.Username, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := q.rdb.LRange(ctx, backlogKey(to), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Envelope, 0, len(vals))
	for _, v := range vals {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(v), &env); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func (q *RedisQueue) Ack(ctx context.Context, to domain.Username, count int) error {
	if count <= 0 {
		return nil
	}
	return q.rdb.LTrim(ctx, backlogKey(to), int64(count), -1).Err()
}
