package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

var _ Hub = (*MemoryHub)(nil)

// MemoryHub fans changes out within one process. Slow subscribers miss
// changes rather than block publishers.
type MemoryHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *MemoryHub) Publish(_ context.Context, change Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return fmt.Errorf("hub is closed")
	}
	for sub := range h.subs[change.StudentID] {
		if !sub.offer(change) {
			slog.Warn("live subscriber behind, change dropped",
				"student_id", change.StudentID,
				"change_id", change.ID,
			)
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, studentID string) (*Subscription, error) {
	sub := newSubscription()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("hub is closed")
	}
	if h.subs[studentID] == nil {
		h.subs[studentID] = make(map[*Subscription]struct{})
	}
	h.subs[studentID][sub] = struct{}{}
	h.mu.Unlock()

	sub.onClose(func() { h.remove(studentID, sub) })
	sub.closeWith(ctx)
	return sub, nil
}

// Subscribers returns the number of open subscriptions for a student.
func (h *MemoryHub) Subscribers(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[studentID])
}

// Close ends every subscription.
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}

func (h *MemoryHub) remove(studentID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[studentID], sub)
	if len(h.subs[studentID]) == 0 {
		delete(h.subs, studentID)
	}
}
