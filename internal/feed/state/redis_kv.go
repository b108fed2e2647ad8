package state

import (
	"context"
	"time"

	"gosupermarket_api/internal/feed/models"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "feedstate:"

// RedisKV stores one ProcessingState per key as a Redis hash.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (models.ProcessingState, bool, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return models.ProcessingState{}, false, &models.TransientIOError{Op: "state get", Err: err}
	}
	if len(fields) == 0 {
		return models.ProcessingState{}, false, nil
	}
	st := models.ProcessingState{
		LastProcessedObjectKey: fields["last_key"],
		LastContentHash:        fields["last_hash"],
	}
	if raw := fields["last_success_at"]; raw != "" {
		if t, err := time.Parse(models.TimeFormat, raw); err == nil {
			st.LastSuccessAt = t
		}
	}
	return st, true, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, st models.ProcessingState) error {
	fields := map[string]interface{}{
		"last_key":  st.LastProcessedObjectKey,
		"last_hash": st.LastContentHash,
	}
	if !st.LastSuccessAt.IsZero() {
		fields["last_success_at"] = models.FormatTimestamp(st.LastSuccessAt)
	}
	if err := r.client.HSet(ctx, keyPrefix+key, fields).Err(); err != nil {
		return &models.TransientIOError{Op: "state put", Err: err}
	}
	return nil
}
