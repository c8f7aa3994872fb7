package webhook

import (
	"context"
	"sync"
	"time"
)

// DeliveryLog records delivery IDs already seen inside the freshness window.
// It is telemetry, not a correctness mechanism: sync idempotency makes
// redelivery safe, the log only lets operators spot replays. Failures are
// logged and ignored by the handler.
type DeliveryLog interface {
	// MarkSeen records a delivery ID and reports whether it was already
	// present.
	MarkSeen(ctx context.Context, deliveryID string, ttl time.Duration) (seen bool, err error)
}

// InMemoryDeliveryLog is a map-backed delivery log for tests and local runs.
type InMemoryDeliveryLog struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewInMemoryDeliveryLog() *InMemoryDeliveryLog {
	return &InMemoryDeliveryLog{seen: make(map[string]time.Time)}
}

func (l *InMemoryDeliveryLog) MarkSeen(_ context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if expiry, ok := l.seen[deliveryID]; ok && now.Before(expiry) {
		return true, nil
	}
	l.seen[deliveryID] = now.Add(ttl)
	return false, nil
}
