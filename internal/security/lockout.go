// Package security tracks repeated admin API authentication failures and
// locks out the clients causing them.
package security

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Lockout defaults.
const (
	DefaultMaxFailures = 10
	DefaultWindow      = 15 * time.Minute
	DefaultLockout     = 5 * time.Minute
	cleanupInterval    = time.Minute
	maxTrackedClients  = 10000
)

// LockoutConfig tunes a Lockout.
type LockoutConfig struct {
	MaxFailures int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultLockoutConfig allows ten failures per client in fifteen minutes
// before a five minute lockout.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{MaxFailures: DefaultMaxFailures, Window: DefaultWindow, Lockout: DefaultLockout}
}

type failureRecord struct {
	failures  int
	firstFail time.Time
	lockedAt  time.Time
}

// Lockout counts authentication failures per client and blocks clients that
// exceed the threshold within the window. Clients are identified by IP so
// guessing many different keys from one address is caught.
type Lockout struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	cfg     LockoutConfig
	now     func() time.Time
	log     *logrus.Logger
}

// NewLockout creates a Lockout whose background cleanup stops when ctx is
// cancelled.
func NewLockout(ctx context.Context, cfg LockoutConfig, log *logrus.Logger) *Lockout {
	l := newLockout(cfg, log, time.Now)
	go l.cleanupLoop(ctx)

	return l
}

func newLockout(cfg LockoutConfig, log *logrus.Logger, now func() time.Time) *Lockout {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = DefaultMaxFailures
	}

	return &Lockout{records: make(map[string]*failureRecord), cfg: cfg, now: now, log: log}
}

// Blocked reports whether client is locked out and, if so, for how long.
func (l *Lockout) Blocked(client string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[client]
	if !ok || rec.lockedAt.IsZero() {
		return 0, false
	}

	remaining := l.cfg.Lockout - l.now().Sub(rec.lockedAt)
	if remaining <= 0 {
		return 0, false
	}

	return remaining, true
}

// RecordFailure counts one failed attempt and reports whether it locked the
// client out.
func (l *Lockout) RecordFailure(client string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[client]
	if !ok || now.Sub(rec.firstFail) > l.cfg.Window || l.expired(rec, now) {
		l.records[client] = &failureRecord{failures: 1, firstFail: now}
		return l.cfg.MaxFailures == 1 && l.lock(client, l.records[client], now)
	}

	rec.failures++
	if rec.failures >= l.cfg.MaxFailures && rec.lockedAt.IsZero() {
		return l.lock(client, rec, now)
	}

	return false
}

// Reset clears client's failures after a successful authentication.
func (l *Lockout) Reset(client string) {
	l.mu.Lock()
	delete(l.records, client)
	l.mu.Unlock()
}

func (l *Lockout) lock(client string, rec *failureRecord, now time.Time) bool {
	rec.lockedAt = now
	l.log.WithFields(logrus.Fields{
		"client_ip": client,
		"failures":  rec.failures,
		"lockout":   l.cfg.Lockout,
	}).Warn("client locked out after repeated authentication failures")

	return true
}

func (l *Lockout) expired(rec *failureRecord, now time.Time) bool {
	return !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= l.cfg.Lockout
}

func (l *Lockout) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops finished lockouts and stale windows, then trims the oldest
// records beyond the tracking cap.
func (l *Lockout) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, rec := range l.records {
		if l.expired(rec, now) || (rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= l.cfg.Window) {
			delete(l.records, k)
		}
	}

	if over := len(l.records) - maxTrackedClients; over > 0 {
		l.evictOldest(over)
	}
}

// evictOldest removes the n records with the oldest first failure.
// Caller must hold l.mu.
func (l *Lockout) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}

	entries := make([]entry, 0, len(l.records))
	for k, rec := range l.records {
		entries = append(entries, entry{k, rec.firstFail})
	}

	slices.SortFunc(entries, func(a, b entry) int { return a.time.Compare(b.time) })

	for i := range n {
		delete(l.records, entries[i].key)
	}
}
