// Package live fans out progress record changes to interested subscribers so
// clients can follow a student's progress as it happens.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kidventure/kidventure/internal/progress"
)

// Change kinds.
const (
	KindRegistered    = "student_registered"
	KindUnitCompleted = "unit_completed"
	KindRewardApplied = "reward_applied"
	KindDeleted       = "student_deleted"
	// KindSnapshot carries the current record when a stream opens.
	KindSnapshot = "snapshot"
)

const subscriptionBuffer = 16

// Change describes a write to a student's progress record.
type Change struct {
	ID        string          `json:"id"`
	StudentID string          `json:"studentId"`
	Kind      string          `json:"kind"`
	Record    progress.Record `json:"record"`
	At        time.Time       `json:"at"`
}

// NewChange stamps a change with a fresh ID and the current time.
func NewChange(kind string, rec progress.Record) Change {
	return Change{
		ID:        uuid.NewString(),
		StudentID: rec.StudentID,
		Kind:      kind,
		Record:    rec,
		At:        time.Now().UTC(),
	}
}

// Hub publishes changes and hands out per-student subscriptions.
type Hub interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe delivers changes for studentID until the subscription is
	// closed or ctx is done.
	Subscribe(ctx context.Context, studentID string) (*Subscription, error)
	Close() error
}

// Subscription is a stream of changes for one student.
type Subscription struct {
	ch      chan Change
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	cleanup []func()
}

func newSubscription() *Subscription {
	return &Subscription{ch: make(chan Change, subscriptionBuffer)}
}

// C returns the channel of changes. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		cleanup := s.cleanup
		s.cleanup = nil
		s.mu.Unlock()

		for _, f := range cleanup {
			f()
		}
	})
	return nil
}

// onClose registers f to run when the subscription closes, or runs it now if
// it already has.
func (s *Subscription) onClose(f func()) {
	s.mu.Lock()
	if !s.closed {
		s.cleanup = append(s.cleanup, f)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	f()
}

// closeWith ends the subscription when ctx is done.
func (s *Subscription) closeWith(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	s.onClose(func() { stop() })
}

// offer delivers without blocking. It reports false when the change was
// dropped because the subscriber is behind or gone.
func (s *Subscription) offer(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- c:
		return true
	default:
		return false
	}
}
