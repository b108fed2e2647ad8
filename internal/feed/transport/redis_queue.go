package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gosupermarket_api/internal/feed/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type wireMessage struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// RedisQueue is the Redis-backed transport: a ready list plus an in-flight
// sorted set scored by lease deadline. Receive moves expired leases back to
// the ready list first, which is what makes delivery at-least-once.
type RedisQueue struct {
	client   *redis.Client
	name     string
	lease    time.Duration
	maxBytes int
}

func NewRedisQueue(client *redis.Client, name string, lease time.Duration, maxBytes int) *RedisQueue {
	if maxBytes <= 0 {
		maxBytes = MaxMessageBytes
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisQueue{client: client, name: name, lease: lease, maxBytes: maxBytes}
}

func (q *RedisQueue) readyKey() string    { return "queue:" + q.name + ":ready" }
func (q *RedisQueue) inflightKey() string { return "queue:" + q.name + ":inflight" }

func (q *RedisQueue) Send(ctx context.Context, body []byte) error {
	if len(body) > q.maxBytes {
		return fmt.Errorf("message body of %d bytes exceeds queue limit of %d", len(body), q.maxBytes)
	}
	wire, err := json.Marshal(wireMessage{ID: uuid.NewString(), Body: body})
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.readyKey(), wire).Err(); err != nil {
		return &models.TransientIOError{Op: "queue send", Err: err}
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]Message, error) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	if err := q.requeueExpired(ctx); err != nil {
		return nil, err
	}

	var raws []string
	for len(raws) < maxBatch {
		raw, err := q.client.RPop(ctx, q.readyKey()).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return nil, &models.TransientIOError{Op: "queue receive", Err: err}
		}
		raws = append(raws, raw)
	}

	if len(raws) == 0 && wait > 0 {
		res, err := q.client.BRPop(ctx, wait, q.readyKey()).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &models.TransientIOError{Op: "queue receive", Err: err}
		}
		// BRPop returns [key, value].
		raws = append(raws, res[1])
	}

	deadline := float64(time.Now().Add(q.lease).Unix())
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		if err := q.client.ZAdd(ctx, q.inflightKey(), &redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
			return msgs, &models.TransientIOError{Op: "queue lease", Err: err}
		}
		var wire wireMessage
		if err := json.Unmarshal([]byte(raw), &wire); err != nil {
			// Not a wire envelope; deliver as-is so the consumer can DLQ it.
			msgs = append(msgs, Message{ID: "", Body: []byte(raw), Receipt: raw})
			continue
		}
		msgs = append(msgs, Message{ID: wire.ID, Body: wire.Body, Receipt: raw})
	}
	return msgs, nil
}

func (q *RedisQueue) Ack(ctx context.Context, msg Message) error {
	if err := q.client.ZRem(ctx, q.inflightKey(), msg.Receipt).Err(); err != nil {
		return &models.TransientIOError{Op: "queue ack", Err: err}
	}
	return nil
}

// requeueExpired pushes messages whose lease ran out back onto the ready
// list.
func (q *RedisQueue) requeueExpired(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().Unix())
	expired, err := q.client.ZRangeByScore(ctx, q.inflightKey(), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return &models.TransientIOError{Op: "queue requeue", Err: err}
	}
	for _, raw := range expired {
		removed, err := q.client.ZRem(ctx, q.inflightKey(), raw).Result()
		if err != nil {
			return &models.TransientIOError{Op: "queue requeue", Err: err}
		}
		// Another worker may have requeued it between the range and the
		// remove; only the one that removed the lease re-enqueues.
		if removed > 0 {
			if err := q.client.LPush(ctx, q.readyKey(), raw).Err(); err != nil {
				return &models.TransientIOError{Op: "queue requeue", Err: err}
			}
		}
	}
	return nil
}
