package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"collector-stack/internal/models"
	"collector-stack/shared/storage"
)

func newTestQueue(t *testing.T, maxAttempts int) (*Queue, *storage.QueueStore) {
	t.Helper()
	store, err := storage.NewQueueStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create queue store: %v", err)
	}
	q, err := NewQueue(store, maxAttempts)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q, store
}

func testItem(n int) models.BatchItem {
	return models.BatchItem{
		ID:         fmt.Sprintf("item-%d", n),
		VideoURL:   fmt.Sprintf("https://youtu.be/vid%08d", n),
		VideoID:    fmt.Sprintf("vid%08d", n),
		EnqueuedAt: time.Now(),
		Priority:   "normal",
		Status:     "pending",
	}
}

func TestQueueEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t, 3)

	for i := 0; i < 3; i++ {
		length, err := q.Enqueue(testItem(i))
		if err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if length != i+1 {
			t.Errorf("expected length %d, got %d", i+1, length)
		}
	}

	items, err := q.DequeueAll()
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "item-0" || items[2].ID != "item-2" {
		t.Error("dequeue should preserve FIFO order")
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty after drain, has %d", q.Len())
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewQueueStore(dir)
	if err != nil {
		t.Fatalf("failed to create queue store: %v", err)
	}

	q1, err := NewQueue(store, 3)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := q1.Enqueue(testItem(i)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	if err := q1.RecordFlush(10, 1, 74, 2*time.Second); err != nil {
		t.Fatalf("stats update failed: %v", err)
	}

	// Simulate a restart: a fresh queue over the same store.
	store2, err := storage.NewQueueStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen queue store: %v", err)
	}
	q2, err := NewQueue(store2, 3)
	if err != nil {
		t.Fatalf("failed to restore queue: %v", err)
	}

	if q2.Len() != 5 {
		t.Errorf("expected 5 restored items, got %d", q2.Len())
	}
	stats := q2.Stats()
	if stats.TotalProcessed != 10 || stats.TotalQuotaSaved != 74 {
		t.Errorf("stats did not survive restart: %+v", stats)
	}
}

func TestQueueRequeuePutsItemsAtFront(t *testing.T) {
	q, _ := newTestQueue(t, 5)

	if _, err := q.Enqueue(testItem(1)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	failed := testItem(0)
	if err := q.Requeue([]models.BatchItem{failed}); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}

	items, err := q.DequeueAll()
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if items[0].ID != "item-0" {
		t.Errorf("requeued item should be first, got %s", items[0].ID)
	}
	if items[0].Attempts != 1 {
		t.Errorf("requeue should count an attempt, got %d", items[0].Attempts)
	}
}

func TestQueueDeadLettersExhaustedItems(t *testing.T) {
	q, _ := newTestQueue(t, 3)

	item := testItem(0)
	item.Attempts = 2 // this requeue is the third strike
	if err := q.Requeue([]models.BatchItem{item}); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}

	if q.Len() != 0 {
		t.Errorf("exhausted item should not be requeued, queue has %d", q.Len())
	}
	dead := q.DeadLetter()
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	if dead[0].Attempts != 3 {
		t.Errorf("dead letter should carry its attempt count, got %d", dead[0].Attempts)
	}
}

func TestQueueEstimatedWait(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	timeout := 60 * time.Second

	if got := q.EstimatedWait(50, timeout); got != timeout {
		t.Errorf("empty queue with no history should wait one timeout, got %v", got)
	}

	// Slow flushes dominate the timeout.
	if err := q.RecordFlush(1, 1, 2, 90*time.Second); err != nil {
		t.Fatalf("stats update failed: %v", err)
	}
	if got := q.EstimatedWait(50, timeout); got != 90*time.Second {
		t.Errorf("slow history should dominate, got %v", got)
	}

	// A full backlog flushes immediately.
	for i := 0; i < 50; i++ {
		if _, err := q.Enqueue(testItem(i)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	if got := q.EstimatedWait(50, timeout); got != 0 {
		t.Errorf("full queue should report zero wait, got %v", got)
	}
}

func TestQueueStatsMovingAverage(t *testing.T) {
	q, _ := newTestQueue(t, 3)

	if err := q.RecordFlush(1, 1, 2, 1000*time.Millisecond); err != nil {
		t.Fatalf("stats update failed: %v", err)
	}
	if got := q.Stats().AvgProcessingTimeMs; got != 1000 {
		t.Fatalf("first sample should set the average directly, got %v", got)
	}

	if err := q.RecordFlush(1, 1, 2, 2000*time.Millisecond); err != nil {
		t.Fatalf("stats update failed: %v", err)
	}
	// 1000*0.9 + 2000*0.1
	if got := q.Stats().AvgProcessingTimeMs; got != 1100 {
		t.Errorf("expected smoothed average 1100, got %v", got)
	}
}

func TestQueueKeepsBacklogWhenDrainPersistFails(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewQueueStore(dir)
	if err != nil {
		t.Fatalf("failed to create queue store: %v", err)
	}
	q, err := NewQueue(store, 3)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(testItem(i)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	// Break persistence by shadowing the state file with a directory.
	statePath := filepath.Join(dir, "batch_queue.json")
	if err := os.Remove(statePath); err != nil {
		t.Fatalf("failed to remove state file: %v", err)
	}
	if err := os.Mkdir(statePath, 0o755); err != nil {
		t.Fatalf("failed to shadow state file: %v", err)
	}

	if _, err := q.DequeueAll(); err == nil {
		t.Fatal("expected drain to fail while persistence is broken")
	}
	if q.Len() != 3 {
		t.Fatalf("failed drain must keep the backlog, have %d of 3 items", q.Len())
	}

	// Once persistence recovers, the same items drain intact and in order.
	if err := os.Remove(statePath); err != nil {
		t.Fatalf("failed to restore state path: %v", err)
	}
	items, err := q.DequeueAll()
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "item-0" || items[2].ID != "item-2" {
		t.Error("recovered drain should preserve FIFO order")
	}
	for _, item := range items {
		if item.Status != "processing" {
			t.Errorf("drained item %s should be processing, got %q", item.ID, item.Status)
		}
	}
}
