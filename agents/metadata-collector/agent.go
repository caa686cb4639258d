package metadatacollector

import (
	"context"
	"fmt"
	"log"
	"time"

	"collector-stack/agents/metadata-collector/batch"
	"collector-stack/agents/metadata-collector/extract"
	"collector-stack/agents/metadata-collector/quota"
	"collector-stack/internal/models"
	"collector-stack/shared/config"
	"collector-stack/shared/scheduler"
	"collector-stack/shared/storage"
)

// CollectorAgent wires the credential pool, extractors and batch machinery
// together and implements the scheduler.Agent interface. The scheduled run
// is maintenance only; the real work arrives over HTTP.
type CollectorAgent struct {
	config *config.Config

	pool   *quota.Pool
	hybrid *extract.HybridExtractor
	queue  *batch.Queue
	batch  *batch.Scheduler

	sink batch.RecordSink
}

// NewCollectorAgent builds an uninitialized agent. The sink receives every
// merged record a flush produces; pass nil to only log them.
func NewCollectorAgent(cfg *config.Config, sink batch.RecordSink) *CollectorAgent {
	return &CollectorAgent{
		config: cfg,
		sink:   sink,
	}
}

func (a *CollectorAgent) Name() string {
	return "Metadata Collector"
}

func (a *CollectorAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())

	if bad := a.config.MalformedAPIKeys(); len(bad) > 0 {
		log.Printf("⚠️ %d configured API keys do not match the provider key format", len(bad))
	}

	if a.pool == nil {
		creds := quota.KeyCredentials(a.config.YouTube.APIKeys)
		oauth := a.config.YouTube.OAuth
		if oauth.ClientID != "" && oauth.ClientSecret != "" {
			cred, err := quota.OAuthCredential("oauth", oauth.ClientID, oauth.ClientSecret, oauth.TokenFile)
			if err != nil {
				log.Printf("⚠️ OAuth credential unavailable, continuing with API keys: %v", err)
			} else {
				creds = append(creds, cred)
			}
		}

		usageStore, err := storage.NewUsageStore(a.config.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create usage store: %w", err)
		}
		a.pool = quota.NewPool(creds, quota.Limits{
			DailyRequests:  a.config.Quota.DailyRequestLimit,
			MinuteRequests: a.config.Quota.MinuteRequestLimit,
			MinuteUnits:    a.config.Quota.MinuteUnitLimit,
		}, quota.WithUsageStore(usageStore))
	}

	if a.hybrid == nil {
		direct := extract.NewDirectExtractor(a.config.Extraction)
		api := extract.NewAPIExtractor(a.pool, a.config.Extraction)
		a.hybrid = extract.NewHybridExtractor(direct, api)
		log.Println("Extractors initialized")
	}

	if a.batch == nil {
		queueStore, err := storage.NewQueueStore(a.config.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create queue store: %w", err)
		}
		queue, err := batch.NewQueue(queueStore, a.config.Batch.MaxAttempts)
		if err != nil {
			return fmt.Errorf("failed to restore batch queue: %w", err)
		}
		a.queue = queue

		processor := batch.NewChunkProcessor(extract.NewAPIExtractor(a.pool, a.config.Extraction))
		a.batch = batch.NewScheduler(queue, processor, a.config.Batch, a.recordSink())
		a.batch.Start()
		log.Printf("Batch scheduler initialized (%d items in backlog)", queue.Len())
	}

	return nil
}

// RunOnce is the scheduled maintenance pass: flush a backlog that has been
// waiting longer than the batch timeout (covers timers lost to a crash) and
// report quota health.
func (a *CollectorAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	flushed := 0
	if oldest, ok := a.queue.OldestEnqueuedAt(); ok && time.Since(oldest) > a.config.Batch.Timeout() {
		log.Printf("Backlog head is %v old, forcing a flush", time.Since(oldest).Round(time.Second))
		result, err := a.batch.ForceProcess(ctx)
		if err != nil {
			// A flush already running is doing our work for us.
			log.Printf("Skipping forced flush: %v", err)
		} else {
			flushed = result.Processed
		}
	}

	log.Println("Credential usage:")
	a.pool.LogUsageStatus()

	metrics := &RunMetrics{
		QueueLength: a.queue.Len(),
		DeadLetters: len(a.queue.DeadLetter()),
		Flushed:     flushed,
		Stats:       a.queue.Stats(),
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	return nil
}

// recordSink wraps the configured sink with logging so flush output is
// visible even when no downstream is attached.
func (a *CollectorAgent) recordSink() batch.RecordSink {
	return func(records []*models.MergedVideoRecord) {
		log.Printf("Batch produced %d records", len(records))
		if a.sink != nil {
			a.sink(records)
		}
	}
}

// Hybrid exposes the extraction pipeline to the HTTP layer.
func (a *CollectorAgent) Hybrid() *extract.HybridExtractor { return a.hybrid }

// Batch exposes the batch scheduler to the HTTP layer.
func (a *CollectorAgent) Batch() *batch.Scheduler { return a.batch }

// Pool exposes the credential pool to the HTTP layer.
func (a *CollectorAgent) Pool() *quota.Pool { return a.pool }

// RunMetrics summarizes one maintenance run.
type RunMetrics struct {
	QueueLength int
	DeadLetters int
	Flushed     int
	Stats       models.BatchStats
}

func (m *RunMetrics) GetSummary() string {
	return fmt.Sprintf("%d queued, %d dead-lettered, %d flushed, %d processed lifetime (~%d units saved)",
		m.QueueLength, m.DeadLetters, m.Flushed, m.Stats.TotalProcessed, m.Stats.TotalQuotaSaved)
}
