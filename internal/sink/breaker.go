package sink

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// circuitBreaker blocks requests for a fixed delay after the cluster throttled us.
type circuitBreaker struct {
	mu        sync.RWMutex
	openUntil time.Time
	delay     time.Duration
	now       func() time.Time
}

func newCircuitBreaker(delay time.Duration) *circuitBreaker {
	return &circuitBreaker{delay: delay, now: time.Now}
}

func (b *circuitBreaker) isOpen() bool {
	b.mu.RLock()
	now := b.now()
	wasOpen := now.Before(b.openUntil)
	wasTriggered := !b.openUntil.IsZero()
	b.mu.RUnlock()

	if !wasOpen && wasTriggered {
		b.mu.Lock()
		// Double-check after acquiring write lock
		if !b.openUntil.IsZero() && !now.Before(b.openUntil) {
			b.openUntil = time.Time{}
			log.Infof("✅ Search circuit breaker re-enabled - bulk requests are allowed again")
		}
		b.mu.Unlock()
	}

	return wasOpen
}

func (b *circuitBreaker) trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.openUntil = b.now().Add(b.delay)
	log.Warnf("🚫 Search circuit breaker activated! Bulk requests disabled until %v", b.openUntil.Format("15:04:05"))
}

func (b *circuitBreaker) remaining() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	remaining := b.openUntil.Sub(b.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
