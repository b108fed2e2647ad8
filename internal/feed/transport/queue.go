package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxMessageBytes is the hard transport ceiling per message body; the chunker
// sizes envelopes against it.
const MaxMessageBytes = 256_000

// Message is one delivered queue entry. Receipt identifies the in-flight
// lease for acknowledgment.
type Message struct {
	ID      string
	Body    []byte
	Receipt string
}

// Queue is an at-least-once transport. A received message that is not acked
// within the lease window is redelivered, so consumers must be idempotent.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
}

type leased struct {
	msg      Message
	deadline time.Time
}

// MemoryQueue implements Queue in-process with the same lease semantics as
// the Redis transport. Used by tests and local single-binary runs.
type MemoryQueue struct {
	mu       sync.Mutex
	ready    []Message
	inflight map[string]leased
	lease    time.Duration
	maxBytes int
	now      func() time.Time
}

func NewMemoryQueue(lease time.Duration, maxBytes int) *MemoryQueue {
	if maxBytes <= 0 {
		maxBytes = MaxMessageBytes
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &MemoryQueue{
		inflight: make(map[string]leased),
		lease:    lease,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (q *MemoryQueue) Send(_ context.Context, body []byte) error {
	if len(body) > q.maxBytes {
		return fmt.Errorf("message body of %d bytes exceeds queue limit of %d", len(body), q.maxBytes)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.ready = append(q.ready, Message{ID: id, Body: body, Receipt: id})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]Message, error) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	deadline := q.now().Add(wait)
	for {
		if msgs := q.take(maxBatch); len(msgs) > 0 {
			return msgs, nil
		}
		if wait <= 0 || !q.now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) take(maxBatch int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for receipt, l := range q.inflight {
		if l.deadline.Before(now) {
			q.ready = append(q.ready, l.msg)
			delete(q.inflight, receipt)
		}
	}

	n := maxBatch
	if n > len(q.ready) {
		n = len(q.ready)
	}
	if n == 0 {
		return nil
	}
	msgs := append([]Message(nil), q.ready[:n]...)
	q.ready = q.ready[n:]
	for _, m := range msgs {
		q.inflight[m.Receipt] = leased{msg: m, deadline: now.Add(q.lease)}
	}
	return msgs
}

func (q *MemoryQueue) Ack(_ context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, msg.Receipt)
	return nil
}

// Depth reports ready plus in-flight messages; test helper.
func (q *MemoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + len(q.inflight)
}
