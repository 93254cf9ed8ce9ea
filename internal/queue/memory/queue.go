// Package memory provides the in-process job queue feeding the dispatcher.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Queue is a bounded in-memory queue. Enqueue never blocks: a full queue is
// reported as crawler.ErrQueueFull so the API can shed load.
type Queue struct {
	ch     chan crawler.QueueItem
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a queue holding at most capacity pending items.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan crawler.QueueItem, capacity)}
}

// Enqueue adds an item or fails immediately when the queue is full or closed.
func (q *Queue) Enqueue(ctx context.Context, item crawler.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return crawler.ErrQueueClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return crawler.ErrQueueFull
	}
}

// Dequeue pops the next item, blocking until one arrives or ctx ends.
func (q *Queue) Dequeue(ctx context.Context) (crawler.QueueItem, error) {
	select {
	case <-ctx.Done():
		return crawler.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return crawler.QueueItem{}, crawler.ErrQueueClosed
		}
		return item, nil
	}
}

// Len reports the number of pending items.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting items. Pending items can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
