package batch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"collector-stack/agents/metadata-collector/extract"
	"collector-stack/internal/models"
	"collector-stack/shared/config"
)

// ErrFlushInProgress is returned by ForceProcess when a flush is already
// running; the caller's items will ride the next one.
var ErrFlushInProgress = errors.New("a flush is already in progress")

// chunkRunner is what the scheduler needs from a chunk processor.
type chunkRunner interface {
	ProcessChunk(ctx context.Context, items []models.BatchItem) ([]*models.MergedVideoRecord, error)
}

// RecordSink receives the merged records of a flush. Delivery is
// fire-and-forget: a sink failure is the sink's problem, the items are not
// requeued.
type RecordSink func(records []*models.MergedVideoRecord)

// FlushResult summarizes one flush.
type FlushResult struct {
	Processed  int   `json:"processed"`
	Requeued   int   `json:"requeued"`
	Chunks     int   `json:"chunks"`
	QuotaSaved int   `json:"quota_saved"`
	ElapsedMs  int64 `json:"elapsed_ms"`
}

// Status is the introspection snapshot served over HTTP.
type Status struct {
	QueueLength    int               `json:"queue_length"`
	OldestWaitMs   int64             `json:"oldest_wait_ms"`
	Priorities     map[string]int    `json:"priorities"`
	DeadLetters    int               `json:"dead_letters"`
	MaxBatchSize   int               `json:"max_batch_size"`
	IsProcessing   bool              `json:"is_processing"`
	NextFlushAt    *time.Time        `json:"next_flush_at,omitempty"`
	Stats          models.BatchStats `json:"stats"`
	PendingSavings int               `json:"pending_quota_savings"`
}

// Scheduler owns the batching state machine: it accumulates items until the
// backlog reaches a full chunk or the batch timeout fires, whichever comes
// first, then flushes the whole backlog through the chunk processor. At most
// one flush runs at a time; enqueues during a flush start a fresh backlog.
type Scheduler struct {
	queue     *Queue
	processor chunkRunner
	cfg       config.BatchConfig
	sink      RecordSink

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	flushing bool
}

func NewScheduler(queue *Queue, processor chunkRunner, cfg config.BatchConfig, sink RecordSink) *Scheduler {
	return &Scheduler{
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		sink:      sink,
	}
}

// Start re-arms the flush timer when a backlog was restored from disk, so
// recovered items do not wait for the next enqueue.
func (s *Scheduler) Start() {
	if s.queue.Len() > 0 {
		log.Printf("Resuming with %d backlogged items, arming flush timer", s.queue.Len())
		s.armTimer()
	}
}

// Stop cancels any pending flush timer. Queued items stay durable on disk.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// Add parses and enqueues one video URL. When the backlog reaches a full
// chunk the flush runs synchronously before returning, so the caller's ack
// reflects work already done.
func (s *Scheduler) Add(ctx context.Context, rawURL string) (*models.BatchAck, error) {
	videoID, err := extract.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	item := models.BatchItem{
		ID:         uuid.NewString(),
		VideoURL:   rawURL,
		VideoID:    videoID,
		EnqueuedAt: time.Now(),
		Priority:   "normal",
		Status:     "pending",
	}
	length, err := s.queue.Enqueue(item)
	if err != nil {
		return nil, err
	}

	if length >= s.cfg.ChunkSize {
		if s.tryBeginFlush() {
			s.runFlush(ctx)
		}
		return &models.BatchAck{
			BatchID: item.ID,
			Status:  "processing",
		}, nil
	}

	s.armTimer()
	return &models.BatchAck{
		BatchID:         item.ID,
		Status:          "queued",
		QueuePosition:   length,
		EstimatedWaitMs: s.queue.EstimatedWait(s.cfg.ChunkSize, s.cfg.Timeout()).Milliseconds(),
	}, nil
}

// ForceProcess flushes the backlog immediately, regardless of size or timer.
func (s *Scheduler) ForceProcess(ctx context.Context) (*FlushResult, error) {
	if !s.tryBeginFlush() {
		return nil, ErrFlushInProgress
	}
	return s.runFlush(ctx), nil
}

// Status reports the queue and scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	var next *time.Time
	if s.timer != nil && s.deadline.After(time.Now()) {
		deadline := s.deadline
		next = &deadline
	}
	flushing := s.flushing
	s.mu.Unlock()

	length := s.queue.Len()
	var oldestWait int64
	if oldest, ok := s.queue.OldestEnqueuedAt(); ok {
		oldestWait = time.Since(oldest).Milliseconds()
	}
	return Status{
		QueueLength:    length,
		OldestWaitMs:   oldestWait,
		Priorities:     s.queue.PriorityCounts(),
		DeadLetters:    len(s.queue.DeadLetter()),
		MaxBatchSize:   s.cfg.ChunkSize,
		IsProcessing:   flushing,
		NextFlushAt:    next,
		Stats:          s.queue.Stats(),
		PendingSavings: quotaSaved(length, chunkCount(length, s.cfg.ChunkSize), s.cfg),
	}
}

// armTimer starts the flush countdown if none is pending. The timer for a
// backlog is armed by its first enqueue and never pushed back by later ones.
func (s *Scheduler) armTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return
	}
	s.deadline = time.Now().Add(s.cfg.Timeout())
	s.timer = time.AfterFunc(s.cfg.Timeout(), func() {
		if s.tryBeginFlush() {
			s.runFlush(context.Background())
		}
	})
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// tryBeginFlush transitions to the flushing state. It fails when a flush is
// already running, which is how overlapping triggers collapse into one.
func (s *Scheduler) tryBeginFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushing {
		return false
	}
	s.flushing = true
	s.stopTimerLocked()
	return true
}

// runFlush drains the backlog and processes it chunk by chunk. Must only be
// called after a successful tryBeginFlush. Items enqueued while this runs
// form the next backlog; if that backlog already warrants a flush by the
// time we finish, we go again.
func (s *Scheduler) runFlush(ctx context.Context) *FlushResult {
	defer s.endFlush()

	start := time.Now()
	result := &FlushResult{}

	items, err := s.queue.DequeueAll()
	if err != nil {
		log.Printf("Failed to drain batch queue: %v", err)
		return result
	}
	if len(items) == 0 {
		return result
	}

	log.Printf("Flushing %d queued videos", len(items))

	var failed []models.BatchItem
	okChunks, okItems := 0, 0
	for _, chunk := range splitChunks(items, s.cfg.ChunkSize) {
		records, err := s.processor.ProcessChunk(ctx, chunk)
		if err != nil {
			log.Printf("Chunk failed, requeueing %d items: %v", len(chunk), err)
			failed = append(failed, chunk...)
			continue
		}
		okChunks++
		okItems += len(chunk)
		result.Processed += len(records)
		if s.sink != nil && len(records) > 0 {
			s.sink(records)
		}
	}

	if len(failed) > 0 {
		if err := s.queue.Requeue(failed); err != nil {
			log.Printf("Failed to requeue %d items: %v", len(failed), err)
		}
		result.Requeued = len(failed)
	}

	elapsed := time.Since(start)
	result.Chunks = okChunks
	result.QuotaSaved = quotaSaved(okItems, okChunks, s.cfg)
	result.ElapsedMs = elapsed.Milliseconds()

	if err := s.queue.RecordFlush(result.Processed, okChunks, result.QuotaSaved, elapsed); err != nil {
		log.Printf("Failed to persist batch stats: %v", err)
	}

	log.Printf("Flush done: %d processed, %d requeued, %d chunks, ~%d units saved in %v",
		result.Processed, result.Requeued, okChunks, result.QuotaSaved, elapsed.Round(time.Millisecond))
	return result
}

// endFlush leaves the flushing state and deals with the backlog that built
// up meanwhile: a full chunk flushes immediately, anything smaller gets a
// timer.
func (s *Scheduler) endFlush() {
	s.mu.Lock()
	s.flushing = false
	// A timer that fired during the flush lost the race and is dead weight;
	// drop it so the backlog below gets a live one.
	s.stopTimerLocked()
	s.mu.Unlock()

	length := s.queue.Len()
	switch {
	case length >= s.cfg.ChunkSize:
		if s.tryBeginFlush() {
			go s.runFlush(context.Background())
		}
	case length > 0:
		s.armTimer()
	}
}

// quotaSaved estimates how many units batching avoided: what k individual
// extractions would have cost, minus what the batched calls actually cost.
func quotaSaved(items, chunks int, cfg config.BatchConfig) int {
	saved := items*cfg.PerItemCost - chunks*cfg.BatchCallCost
	if saved < 0 {
		return 0
	}
	return saved
}

func chunkCount(items, size int) int {
	if items == 0 || size <= 0 {
		return 0
	}
	return (items + size - 1) / size
}

func splitChunks(items []models.BatchItem, size int) [][]models.BatchItem {
	var chunks [][]models.BatchItem
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
