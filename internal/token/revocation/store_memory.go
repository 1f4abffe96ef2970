package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is the in-process revocation set. This is the wired default: fast
// logout without consulting a persistent store on every request. The known
// limitations are accepted scope: revocations are invisible to sibling
// processes and a restart forgets them all. Deployments that need
// cross-instance logout swap in RedisTRL.
type MemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // key -> expiry of the revocation entry
	clock   func() time.Time
}

// MemoryTRLOption configures a MemoryTRL instance.
type MemoryTRLOption func(*MemoryTRL)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock func() time.Time) MemoryTRLOption {
	return func(trl *MemoryTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewMemoryTRL(opts ...MemoryTRLOption) *MemoryTRL {
	trl := &MemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// Revoke records the key until the token's natural expiry; afterwards the
// entry is garbage and gets dropped lazily.
func (t *MemoryTRL) Revoke(_ context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[key] = t.clock().Add(ttl)
	return nil
}

// IsRevoked checks membership, opportunistically dropping expired entries so
// the set does not grow without bound.
func (t *MemoryTRL) IsRevoked(_ context.Context, key string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if key == "" {
		return false, nil
	}

	t.mu.RLock()
	expiresAt, ok := t.revoked[key]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if t.clock().After(expiresAt) {
		t.mu.Lock()
		delete(t.revoked, key)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
