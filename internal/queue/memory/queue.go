// Package memory provides the bounded seed queue drained by the worker pool.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// Queue is a bounded in-memory queue of crawl targets with context-aware operations.
type Queue struct {
	ch      chan crawler.CrawlTarget
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{ch: make(chan crawler.CrawlTarget, capacity)}
}

// Enqueue pushes a target or returns when the context ends.
// Enqueue after Close returns crawler.ErrQueueClosed.
func (q *Queue) Enqueue(ctx context.Context, target crawler.CrawlTarget) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return crawler.ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- target:
		return nil
	}
}

// Dequeue pops the next target. Once the queue is closed and drained it
// returns crawler.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (crawler.CrawlTarget, error) {
	select {
	case <-ctx.Done():
		return crawler.CrawlTarget{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case target, ok := <-q.ch:
		if !ok {
			return crawler.CrawlTarget{}, crawler.ErrQueueClosed
		}
		return target, nil
	}
}

// Len returns the number of buffered targets.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops further enqueues. Buffered targets remain available to Dequeue.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
