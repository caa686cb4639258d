package quota

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"collector-stack/shared/storage"
)

// Endpoint unit costs as published by the provider. Every call is charged on
// attempt; the provider bills failed calls too.
const (
	CostVideosList   = 1
	CostChannelsList = 1
	CostCommentsList = 1
	CostSearchList   = 100
)

// Credential statuses reported by UsageStatus.
const (
	StatusActive    = "active"
	StatusExhausted = "exhausted"
	StatusDisabled  = "disabled"
)

// ErrCredentialsExhausted is returned by GetAvailable when every credential
// has at least one counter at or above its ceiling.
var ErrCredentialsExhausted = errors.New("all credentials over quota budget")

// Credential is one API key (or OAuth client) with its usage counters. All
// counter fields are owned by the Pool and must only be touched under its
// mutex.
type Credential struct {
	ID  string
	Key string // API key; empty for OAuth-backed credentials

	// TokenSource is set instead of Key for OAuth-backed credentials.
	TokenSource oauth2.TokenSource

	disabled bool

	minuteStart    time.Time
	minuteRequests int
	minuteUnits    int

	dayStart    time.Time
	dayRequests int
}

// IsOAuth reports whether this credential authenticates via OAuth rather
// than a plain API key.
func (c *Credential) IsOAuth() bool {
	return c.TokenSource != nil
}

// Limits are the per-credential ceilings. A credential is usable only while
// all three counters are strictly below their limit.
type Limits struct {
	DailyRequests  int
	MinuteRequests int
	MinuteUnits    int
}

// CredentialStatus is a point-in-time usage snapshot for reporting.
type CredentialStatus struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	DayRequests    int    `json:"day_requests"`
	DayLimit       int    `json:"day_limit"`
	MinuteRequests int    `json:"minute_requests"`
	MinuteUnits    int    `json:"minute_units"`
	PercentUsed    int    `json:"percent_used"`
}

// Pool owns a fixed set of credentials and their multi-window usage
// accounting. It is the single authority over quota state: selection and
// charging are serialized under one mutex so two callers can never both
// claim the last unit of a credential's budget.
type Pool struct {
	mu     sync.Mutex
	creds  []*Credential
	limits Limits

	// start anchors the fixed per-minute windows.
	start time.Time
	// resetLoc is the provider's quota-day timezone; the daily window rolls
	// at midnight there, not at local midnight.
	resetLoc *time.Location

	store *storage.UsageStore // optional; nil disables persistence
	now   func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithUsageStore enables daily-counter persistence across restarts.
func WithUsageStore(store *storage.UsageStore) Option {
	return func(p *Pool) { p.store = store }
}

// WithClock overrides the pool's time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// NewPool builds a pool over the given credentials. Credential order is
// significant: GetAvailable always scans in index order, so selection is
// deterministic and reproducible.
func NewPool(creds []*Credential, limits Limits, opts ...Option) *Pool {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		// The provider's reset hour does not observe DST drift gracefully
		// anyway; a fixed offset is an acceptable fallback.
		loc = time.FixedZone("PT", -8*3600)
	}

	p := &Pool{
		creds:    creds,
		limits:   limits,
		resetLoc: loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.start = p.now()

	p.restoreDayUsage()

	log.Printf("Credential pool initialized: %d credentials, limits %d/day %d req/min %d units/min",
		len(creds), limits.DailyRequests, limits.MinuteRequests, limits.MinuteUnits)
	return p
}

// GetAvailable returns the first credential, in index order, whose three
// counters are all strictly below their ceilings. It never blocks; when the
// whole pool is spent it returns ErrCredentialsExhausted immediately.
func (p *Pool) GetAvailable() (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for _, c := range p.creds {
		if c.disabled {
			continue
		}
		p.rollWindows(c, now)

		if c.dayRequests >= p.limits.DailyRequests {
			continue
		}
		if c.minuteRequests >= p.limits.MinuteRequests {
			continue
		}
		if c.minuteUnits >= p.limits.MinuteUnits {
			continue
		}
		return c, nil
	}
	return nil, ErrCredentialsExhausted
}

// RecordUsage charges one request and unitCost units against the credential.
// Usage is charged regardless of success: the provider bills on attempt.
func (p *Pool) RecordUsage(c *Credential, unitCost int, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.rollWindows(c, now)

	c.minuteRequests++
	c.minuteUnits += unitCost
	c.dayRequests++

	if !success {
		log.Printf("Charged failed call against credential %s (%d units)", c.ID, unitCost)
	}

	p.saveDayUsageLocked()
}

// Disable permanently excludes a credential (provider reported the key as
// invalid). It stays excluded until Reinstate.
func (p *Pool) Disable(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !c.disabled {
		c.disabled = true
		log.Printf("Credential %s disabled", c.ID)
	}
}

// Reinstate re-enables a previously disabled credential by id.
func (p *Pool) Reinstate(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.creds {
		if c.ID == id && c.disabled {
			c.disabled = false
			log.Printf("Credential %s reinstated", c.ID)
			return true
		}
	}
	return false
}

// UsageStatus reports every credential's counters and derived status.
func (p *Pool) UsageStatus() []CredentialStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	status := make([]CredentialStatus, 0, len(p.creds))
	for _, c := range p.creds {
		p.rollWindows(c, now)

		s := CredentialStatus{
			ID:             c.ID,
			Status:         StatusActive,
			DayRequests:    c.dayRequests,
			DayLimit:       p.limits.DailyRequests,
			MinuteRequests: c.minuteRequests,
			MinuteUnits:    c.minuteUnits,
		}
		if p.limits.DailyRequests > 0 {
			s.PercentUsed = c.dayRequests * 100 / p.limits.DailyRequests
		}
		switch {
		case c.disabled:
			s.Status = StatusDisabled
		case c.dayRequests >= p.limits.DailyRequests ||
			c.minuteRequests >= p.limits.MinuteRequests ||
			c.minuteUnits >= p.limits.MinuteUnits:
			s.Status = StatusExhausted
		}
		status = append(status, s)
	}
	return status
}

// LogUsageStatus writes a one-line-per-credential usage summary to the log.
func (p *Pool) LogUsageStatus() {
	for _, s := range p.UsageStatus() {
		icon := "✅"
		if s.Status == StatusExhausted || s.PercentUsed >= 100 {
			icon = "🚨"
		} else if s.PercentUsed > 85 {
			icon = "⚠️"
		}
		log.Printf("  %s %s: %d/%d daily requests (%d%%), %d req/min, %d units/min [%s]",
			icon, s.ID, s.DayRequests, s.DayLimit, s.PercentUsed, s.MinuteRequests, s.MinuteUnits, s.Status)
	}
}

// rollWindows resets any counter whose window has ended. Minute windows are
// fixed windows anchored at pool start; the day window rolls at midnight in
// the provider's reset timezone. Caller holds the mutex.
func (p *Pool) rollWindows(c *Credential, now time.Time) {
	minuteStart := p.minuteWindowStart(now)
	if !c.minuteStart.Equal(minuteStart) {
		c.minuteStart = minuteStart
		c.minuteRequests = 0
		c.minuteUnits = 0
	}

	dayStart := p.dayWindowStart(now)
	if !c.dayStart.Equal(dayStart) {
		c.dayStart = dayStart
		c.dayRequests = 0
	}
}

func (p *Pool) minuteWindowStart(now time.Time) time.Time {
	elapsed := now.Sub(p.start)
	if elapsed < 0 {
		elapsed = 0
	}
	return p.start.Add(elapsed.Truncate(time.Minute))
}

func (p *Pool) dayWindowStart(now time.Time) time.Time {
	local := now.In(p.resetLoc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.resetLoc)
}

func (p *Pool) dayKey(now time.Time) string {
	return now.In(p.resetLoc).Format("2006-01-02")
}

// restoreDayUsage reloads persisted daily counters for the current quota day.
func (p *Pool) restoreDayUsage() {
	if p.store == nil {
		return
	}

	saved, err := p.store.Load()
	if err != nil {
		log.Printf("Warning: failed to load credential usage: %v", err)
		return
	}

	now := p.now()
	today := p.dayKey(now)
	dayStart := p.dayWindowStart(now)
	restored := 0
	for _, c := range p.creds {
		if usage, ok := saved[c.ID]; ok && usage.Date == today {
			c.dayRequests = usage.Requests
			c.dayStart = dayStart
			restored++
		}
	}
	if restored > 0 {
		log.Printf("Restored daily usage for %d credentials", restored)
	}
}

// saveDayUsageLocked snapshots daily counters to the usage store. Failures
// are logged, never fatal: losing the snapshot only risks slightly
// optimistic accounting after a crash.
func (p *Pool) saveDayUsageLocked() {
	if p.store == nil {
		return
	}

	snapshot := make(map[string]storage.DayUsage, len(p.creds))
	for _, c := range p.creds {
		snapshot[c.ID] = storage.DayUsage{
			Date:     p.dayKey(p.now()),
			Requests: c.dayRequests,
		}
	}
	if err := p.store.Save(snapshot); err != nil {
		log.Printf("Warning: failed to save credential usage: %v", err)
	}
}

// KeyCredentials builds index-named credentials from plain API keys.
func KeyCredentials(keys []string) []*Credential {
	creds := make([]*Credential, 0, len(keys))
	for i, key := range keys {
		creds = append(creds, &Credential{
			ID:  fmt.Sprintf("api-key-%d", i+1),
			Key: key,
		})
	}
	return creds
}
