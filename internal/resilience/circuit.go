package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is rejected without attempting I/O
// because the provider's breaker is inside its cooldown window.
var ErrCircuitOpen = eris.New("circuit open")

// DefaultCooldown is how long a breaker stays open after a failure signal.
const DefaultCooldown = 45 * time.Second

// Breaker is a time-boxed circuit breaker for one provider. A failure
// signal opens it for a fixed cooldown; it closes on its own once the
// cooldown elapses. There is no half-open probing.
type Breaker struct {
	name     string
	cooldown time.Duration

	mu        sync.Mutex
	openUntil time.Time

	nowFunc func() time.Time
}

// NewBreaker creates a breaker for the named provider.
func NewBreaker(name string, cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{name: name, cooldown: cooldown, nowFunc: time.Now}
}

// Allow returns ErrCircuitOpen while the breaker is open, nil otherwise.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nowFunc().Before(b.openUntil) {
		return ErrCircuitOpen
	}
	return nil
}

// Trip opens the breaker for its cooldown window.
func (b *Breaker) Trip() {
	b.mu.Lock()
	until := b.nowFunc().Add(b.cooldown)
	b.openUntil = until
	b.mu.Unlock()
	zap.L().Warn("circuit opened",
		zap.String("provider", b.name),
		zap.Time("open_until", until),
	)
}

// Open reports whether the breaker currently rejects calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nowFunc().Before(b.openUntil)
}

// Reset closes the breaker immediately.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.openUntil = time.Time{}
	b.mu.Unlock()
}

// BreakerSet manages one breaker per provider name. Safe for concurrent use.
type BreakerSet struct {
	cooldown time.Duration
	nowFunc  func() time.Time

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates a registry of per-provider breakers sharing a cooldown.
func NewBreakerSet(cooldown time.Duration) *BreakerSet {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &BreakerSet{
		cooldown: cooldown,
		nowFunc:  time.Now,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (s *BreakerSet) Get(name string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[name]
	s.mu.RUnlock()
	if ok {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, s.cooldown)
	b.nowFunc = s.nowFunc
	s.breakers[name] = b
	return b
}

// States snapshots every breaker's open/closed state for observability.
func (s *BreakerSet) States() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.breakers))
	for name, b := range s.breakers {
		out[name] = b.Open()
	}
	return out
}

// Guard runs fn through the named breaker with retry: fast-fails while the
// breaker is open, retries transient errors per cfg, and trips the breaker
// when the call ultimately fails with a transient error. This is the single
// retry/circuit utility every provider adapter goes through.
func Guard[T any](ctx context.Context, b *Breaker, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	val, err := DoVal(ctx, cfg, fn)
	if err != nil && IsTransient(err) {
		b.Trip()
	}
	if err != nil {
		return zero, err
	}
	return val, nil
}
