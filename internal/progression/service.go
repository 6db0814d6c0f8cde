// Package progression sequences unit completion, point awards and activity
// logging into the operations callers use.
package progression

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kidventure/kidventure/internal/activity"
	"github.com/kidventure/kidventure/internal/curriculum"
	"github.com/kidventure/kidventure/internal/progress"
	"github.com/kidventure/kidventure/internal/rewards"
	"github.com/kidventure/kidventure/internal/unlock"
)

// Outcome is the result of completing a unit.
type Outcome struct {
	Record         progress.Record  `json:"record"`
	Unit           curriculum.Unit  `json:"unit"`
	NewlyCompleted bool             `json:"newlyCompleted"`
	Next           *curriculum.Unit `json:"next,omitempty"`
	// Award is set when completion earned points.
	Award *rewards.Award `json:"award,omitempty"`
}

// Snapshot is a student's record with the state of every unit.
type Snapshot struct {
	Record progress.Record            `json:"record"`
	Units  []unlock.UnitState         `json:"units"`
	Next   map[string]curriculum.Unit `json:"next"`
}

// Service is the entry point for progression operations.
type Service struct {
	store    progress.Store
	unlock   *unlock.Engine
	rewards  *rewards.Engine
	activity activity.Logger
	logger   *slog.Logger
}

// Config holds Service dependencies.
type Config struct {
	Curriculum *curriculum.Curriculum
	Store      progress.Store
	Badges     []rewards.Badge // nil selects the default badges
	Activity   activity.Logger
	Logger     *slog.Logger
}

// NewService builds the unlock and rewards engines over one store.
func NewService(cfg Config) (*Service, error) {
	if cfg.Curriculum == nil {
		return nil, fmt.Errorf("curriculum is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("progress store is required")
	}
	if cfg.Activity == nil {
		cfg.Activity = activity.NopLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rw, err := rewards.NewEngine(cfg.Curriculum, cfg.Store, cfg.Badges, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("rewards engine: %w", err)
	}
	return &Service{
		store:    cfg.Store,
		unlock:   unlock.NewEngine(cfg.Curriculum, cfg.Store, cfg.Logger),
		rewards:  rw,
		activity: cfg.Activity,
		logger:   cfg.Logger,
	}, nil
}

// Curriculum returns the curriculum in use.
func (s *Service) Curriculum() *curriculum.Curriculum {
	return s.unlock.Curriculum()
}

// Badges returns the badge definitions in use.
func (s *Service) Badges() []rewards.Badge {
	return s.rewards.Badges()
}

// Store returns the underlying progress store.
func (s *Service) Store() progress.Store {
	return s.store
}

// Register creates the student's record if it does not exist.
func (s *Service) Register(ctx context.Context, studentID string) (progress.Record, error) {
	rec, err := s.store.CreateIfAbsent(ctx, studentID)
	if err != nil {
		return progress.Record{}, err
	}
	s.log(ctx, activity.Event{StudentID: rec.StudentID, EventType: activity.StudentRegistered})
	return rec, nil
}

// Get returns the student's record.
func (s *Service) Get(ctx context.Context, studentID string) (progress.Record, error) {
	return s.store.Get(ctx, studentID)
}

// Complete marks a unit complete and, the first time only, awards the unit's
// points. The award is issued only after the completion write succeeded.
func (s *Service) Complete(ctx context.Context, studentID, unitID string) (Outcome, error) {
	c, err := s.unlock.CompleteUnit(ctx, studentID, unitID)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Record:         c.Record,
		Unit:           c.Unit,
		NewlyCompleted: c.NewlyCompleted,
		Next:           c.Next,
	}
	if !c.NewlyCompleted {
		return out, nil
	}

	data := map[string]any{"track": c.Unit.Track}
	if c.Next != nil {
		data["unlocked"] = c.Next.ID
	}
	s.log(ctx, activity.Event{
		StudentID: c.Record.StudentID,
		UnitID:    c.Unit.ID,
		EventType: activity.UnitCompleted,
		Data:      data,
	})

	// Lessons go through rewards even at zero points so they count toward
	// lesson badges.
	if c.Unit.Points <= 0 && c.Unit.Kind != curriculum.KindLesson {
		return out, nil
	}

	award, err := s.award(ctx, c.Record.StudentID, c.Unit.ID, c.Unit.Points)
	if err != nil {
		return out, fmt.Errorf("unit %s completed but points not awarded: %w", c.Unit.ID, err)
	}
	out.Award = &award
	out.Record = award.Record
	return out, nil
}

// AwardBonus awards extra points for a unit outside the completion flow.
func (s *Service) AwardBonus(ctx context.Context, studentID, unitID string, points int64) (rewards.Award, error) {
	return s.award(ctx, studentID, unitID, points)
}

func (s *Service) award(ctx context.Context, studentID, unitID string, points int64) (rewards.Award, error) {
	award, err := s.rewards.AwardPoints(ctx, studentID, unitID, points)
	if err != nil {
		return rewards.Award{}, err
	}

	s.log(ctx, activity.Event{
		StudentID: award.Record.StudentID,
		UnitID:    unitID,
		EventType: activity.PointsAwarded,
		Data:      map[string]any{"points": points, "total": award.NewTotal},
	})
	for _, b := range award.AwardedBadges {
		s.log(ctx, activity.Event{
			StudentID: award.Record.StudentID,
			UnitID:    unitID,
			EventType: activity.BadgeAwarded,
			Data:      map[string]any{"badge": b},
		})
	}
	return award, nil
}

// Snapshot returns the record together with unit states and next units.
func (s *Service) Snapshot(ctx context.Context, studentID string) (Snapshot, error) {
	rec, err := s.store.Get(ctx, studentID)
	if err != nil {
		return Snapshot{}, err
	}
	cur := s.Curriculum()
	return Snapshot{
		Record: rec,
		Units:  unlock.States(cur, rec),
		Next:   unlock.NextUnits(cur, rec),
	}, nil
}

// Leaderboard ranks students by points.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]rewards.Standing, error) {
	return s.rewards.Leaderboard(ctx, limit)
}

// List returns every student record.
func (s *Service) List(ctx context.Context) ([]progress.Record, error) {
	return s.store.List(ctx)
}

// Delete removes a student's record. Administrative only.
func (s *Service) Delete(ctx context.Context, studentID string) error {
	if err := s.store.Delete(ctx, studentID); err != nil {
		return err
	}
	s.log(ctx, activity.Event{StudentID: studentID, EventType: activity.StudentDeleted})
	return nil
}

// log records an activity event. Failures are logged and never returned.
func (s *Service) log(ctx context.Context, ev activity.Event) {
	if err := s.activity.LogEvent(ctx, ev); err != nil {
		s.logger.Warn("activity log failed",
			"student_id", ev.StudentID,
			"type", ev.EventType,
			"error", err,
		)
	}
}
