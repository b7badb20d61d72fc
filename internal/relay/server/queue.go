package server

import (
	"context"
	"sync"

	"cachet/internal/domain"
)

// Queue is the per-recipient envelope backlog. Envelopes stay queued
// until the recipient acknowledges how many it processed.
type Queue interface {
	Push(ctx context.Context, to domain.Username, env domain.Envelope) error
	Peek(ctx context.Context, to domain.Username, limit int) ([]domain.Envelope, error)
	Ack(ctx context.Context, to domain.Username, count int) error
}

// MemoryQueue keeps backlogs in process memory, the default for a
// single-node relay.
type MemoryQueue struct {
	mu   sync.Mutex
	msgs map[domain.Username][]domain.Envelope
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{msgs: make(map[domain.Username][]domain.Envelope)}
}

func (q *MemoryQueue) Push(_ context.Context, to domain.Username, env domain.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs[to] = append(q.msgs[to], env)
	return nil
}

func (q *MemoryQueue) Peek(_ context.Context, to domain.Username, limit int) ([]domain.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	backlog := q.msgs[to]
	if limit <= 0 || limit > len(backlog) {
		limit = len(backlog)
	}
	out := make([]domain.Envelope, limit)
	copy(out, backlog[:limit])
	return out, nil
}

func (q *MemoryQueue) Ack(_ context.Context, to domain.Username, count int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	backlog := q.msgs[to]
	if count >= len(backlog) {
		delete(q.msgs, to)
		return nil
	}
	q.msgs[to] = backlog[count:]
	return nil
}
