package live

import (
	"context"
	"log/slog"

	"github.com/kidventure/kidventure/internal/progress"
)

var _ progress.Store = (*NotifyingStore)(nil)

// NotifyingStore publishes a Change after every successful write to the
// wrapped store. Publish failures are logged and never fail the write.
type NotifyingStore struct {
	progress.Store
	hub    Hub
	logger *slog.Logger
}

// NewNotifyingStore wraps store.
func NewNotifyingStore(store progress.Store, hub Hub, logger *slog.Logger) *NotifyingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyingStore{Store: store, hub: hub, logger: logger}
}

func (s *NotifyingStore) CreateIfAbsent(ctx context.Context, studentID string) (progress.Record, error) {
	rec, err := s.Store.CreateIfAbsent(ctx, studentID)
	if err != nil {
		return rec, err
	}
	s.publish(ctx, KindRegistered, rec)
	return rec, nil
}

func (s *NotifyingStore) ApplyUnitCompletion(ctx context.Context, studentID, unitID string) (progress.Record, bool, error) {
	rec, changed, err := s.Store.ApplyUnitCompletion(ctx, studentID, unitID)
	if err != nil || !changed {
		return rec, changed, err
	}
	s.publish(ctx, KindUnitCompleted, rec)
	return rec, true, nil
}

func (s *NotifyingStore) ApplyRewardDelta(ctx context.Context, studentID string, delta progress.RewardDelta) (progress.Record, error) {
	rec, err := s.Store.ApplyRewardDelta(ctx, studentID, delta)
	if err != nil {
		return rec, err
	}
	s.publish(ctx, KindRewardApplied, rec)
	return rec, nil
}

func (s *NotifyingStore) Delete(ctx context.Context, studentID string) error {
	if err := s.Store.Delete(ctx, studentID); err != nil {
		return err
	}
	id, err := progress.NormalizeID("studentId", studentID)
	if err != nil {
		return nil
	}
	s.publish(ctx, KindDeleted, progress.Record{StudentID: id})
	return nil
}

func (s *NotifyingStore) publish(ctx context.Context, kind string, rec progress.Record) {
	change := NewChange(kind, rec)
	if err := s.hub.Publish(ctx, change); err != nil {
		s.logger.Warn("publish change failed",
			"student_id", rec.StudentID,
			"kind", kind,
			"error", err,
		)
	}
}
