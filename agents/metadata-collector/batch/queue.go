package batch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"collector-stack/internal/models"
	"collector-stack/shared/storage"
)

// statsAlpha is the smoothing factor for the exponential moving average of
// per-flush processing time.
const statsAlpha = 0.1

// Queue is the durable FIFO backlog of single-video requests waiting for the
// next batched API call. Every mutation is persisted before it is
// acknowledged, so a restart resumes exactly where the process died.
type Queue struct {
	mu          sync.Mutex
	items       []models.BatchItem
	deadLetter  []models.BatchItem
	stats       models.BatchStats
	store       *storage.QueueStore
	maxAttempts int
}

// NewQueue loads any persisted backlog from the store. Items that were
// mid-flight during a crash come back as pending.
func NewQueue(store *storage.QueueStore, maxAttempts int) (*Queue, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to restore batch queue: %w", err)
	}

	q := &Queue{
		items:       state.Queue,
		deadLetter:  state.DeadLetter,
		stats:       state.Stats,
		store:       store,
		maxAttempts: maxAttempts,
	}
	for i := range q.items {
		q.items[i].Status = "pending"
	}
	if len(q.items) > 0 {
		log.Printf("Restored %d queued items from disk", len(q.items))
	}
	return q, nil
}

// Enqueue appends an item and persists the queue, returning the new length.
// The item is only acknowledged once it is durable.
func (q *Queue) Enqueue(item models.BatchItem) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	if err := q.saveLocked(); err != nil {
		q.items = q.items[:len(q.items)-1]
		return 0, err
	}
	return len(q.items), nil
}

// DequeueAll drains the entire backlog for processing.
func (q *Queue) DequeueAll() ([]models.BatchItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, nil
	}
	drained := q.items
	q.items = nil
	if err := q.saveLocked(); err != nil {
		// Keep the backlog; a failed drain must not lose items.
		q.items = drained
		return nil, err
	}
	for i := range drained {
		drained[i].Status = "processing"
	}
	return drained, nil
}

// Requeue puts failed items back at the FRONT of the queue so they are
// retried before newer work. Each requeue counts as an attempt; items that
// exhaust their attempts move to the dead letter list instead.
func (q *Queue) Requeue(items []models.BatchItem) error {
	if len(items) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	retry := make([]models.BatchItem, 0, len(items))
	for _, item := range items {
		item.Attempts++
		item.Status = "pending"
		if item.Attempts >= q.maxAttempts {
			log.Printf("Item %s (%s) dead-lettered after %d attempts", item.ID, item.VideoID, item.Attempts)
			q.deadLetter = append(q.deadLetter, item)
			continue
		}
		retry = append(retry, item)
	}
	q.items = append(retry, q.items...)
	return q.saveLocked()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// OldestEnqueuedAt reports when the head of the queue was enqueued. The
// second return is false when the queue is empty.
func (q *Queue) OldestEnqueuedAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].EnqueuedAt, true
}

func (q *Queue) Stats() models.BatchStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// DeadLetter returns a copy of the items that exhausted their retry budget.
func (q *Queue) DeadLetter() []models.BatchItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.BatchItem, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

// RecordFlush folds one flush outcome into the lifetime stats and persists.
func (q *Queue) RecordFlush(processed, chunks, quotaSaved int, elapsed time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.TotalProcessed += processed
	q.stats.TotalChunks += chunks
	q.stats.TotalQuotaSaved += quotaSaved
	q.stats.TotalProcessingTimeMs += elapsed.Milliseconds()
	if q.stats.AvgProcessingTimeMs == 0 {
		q.stats.AvgProcessingTimeMs = float64(elapsed.Milliseconds())
	} else {
		q.stats.AvgProcessingTimeMs = q.stats.AvgProcessingTimeMs*(1-statsAlpha) +
			float64(elapsed.Milliseconds())*statsAlpha
	}
	return q.saveLocked()
}

// EstimatedWait predicts how long a newly queued item will wait. A backlog
// at or past a full chunk flushes immediately (wait 0); otherwise the flush
// fires at the batch timeout, or the smoothed processing time if a flush
// typically takes longer than that.
func (q *Queue) EstimatedWait(chunkSize int, timeout time.Duration) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= chunkSize {
		return 0
	}
	if avg := time.Duration(q.stats.AvgProcessingTimeMs) * time.Millisecond; avg > timeout {
		return avg
	}
	return timeout
}

// PriorityCounts tallies queued items by priority for introspection.
func (q *Queue) PriorityCounts() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[string]int)
	for _, item := range q.items {
		counts[item.Priority]++
	}
	return counts
}

func (q *Queue) saveLocked() error {
	return q.store.Save(&storage.QueueState{
		Queue:      q.items,
		DeadLetter: q.deadLetter,
		Stats:      q.stats,
	})
}
