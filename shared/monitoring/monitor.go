package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Monitor tracks run outcomes for the health endpoint. It is written by the
// scheduler goroutine and read by HTTP handlers, so state lives behind a
// mutex.
type Monitor struct {
	mu                  sync.Mutex
	lastRunSuccess      bool
	lastRunTime         time.Time
	lastSummary         string
	consecutiveFailures int
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.consecutiveFailures = 0
	m.mu.Unlock()

	log.Printf("✅ Run completed successfully - %s (took %v)", summary, duration)
}

// RecordPartialFailure logs a degraded run without flipping health. A run
// that still produced output counts as a run.
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	log.Printf("⚠️  PARTIAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()
	m.consecutiveFailures++
	failures := m.consecutiveFailures
	m.mu.Unlock()

	log.Printf("🚨 CRITICAL FAILURE (%d in a row): %s (Duration: %v)", failures, err.Error(), duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	when := m.lastRunTime.Format("Jan 2 15:04")
	if m.lastRunSuccess {
		return fmt.Sprintf("✅ Last run: %s - %s", when, m.lastSummary)
	}
	return fmt.Sprintf("❌ Last run failed: %s (%d consecutive failures)", when, m.consecutiveFailures)
}
