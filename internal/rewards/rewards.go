// Package rewards accumulates points and awards threshold badges.
package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kidventure/kidventure/internal/curriculum"
	"github.com/kidventure/kidventure/internal/progress"
)

// Award is the result of AwardPoints.
type Award struct {
	NewTotal int64 `json:"newTotal"`
	// AwardedBadges are the badges first earned by this call, in declaration
	// order. Never nil.
	AwardedBadges         []string        `json:"awardedBadges"`
	LessonsCompletedCount int             `json:"lessonsCompletedCount"`
	Record                progress.Record `json:"record"`
}

// Engine awards points and badges.
type Engine struct {
	curriculum *curriculum.Curriculum
	store      progress.Store
	badges     []Badge
	logger     *slog.Logger
}

// NewEngine creates a rewards engine. A nil badges slice selects DefaultBadges.
func NewEngine(cur *curriculum.Curriculum, store progress.Store, badges []Badge, logger *slog.Logger) (*Engine, error) {
	if badges == nil {
		badges = DefaultBadges()
	}
	if err := ValidateBadges(badges); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		curriculum: cur,
		store:      store,
		badges:     append([]Badge(nil), badges...),
		logger:     logger,
	}, nil
}

// Badges returns the badge definitions in evaluation order.
func (e *Engine) Badges() []Badge {
	return append([]Badge(nil), e.badges...)
}

// AwardPoints adds points to the student's total for unitID and awards any
// badge the post-update record earns for the first time. Completing a lesson
// for the first time also counts toward lesson badges.
func (e *Engine) AwardPoints(ctx context.Context, studentID, unitID string, points int64) (Award, error) {
	if points < 0 {
		return Award{}, progress.InvalidArgument("points", "must not be negative")
	}
	unitID, err := progress.NormalizeID("unitId", unitID)
	if err != nil {
		return Award{}, err
	}
	unit, ok := e.curriculum.Unit(unitID)
	if !ok {
		return Award{}, progress.InvalidArgument("unitId", fmt.Sprintf("unknown unit %q", unitID))
	}

	rec, err := e.store.Get(ctx, studentID)
	if err != nil {
		return Award{}, err
	}

	delta := progress.RewardDelta{Points: points}
	stats := Stats{Points: rec.Points + points, LessonsCompleted: rec.LessonsCompletedCount}
	if unit.Kind == curriculum.KindLesson && !rec.LessonCredited(unit.ID) {
		delta.LessonUnitID = unit.ID
		stats.LessonsCompleted++
	}
	delta.Badges = e.newlyEarned(rec, stats)

	updated, err := e.store.ApplyRewardDelta(ctx, rec.StudentID, delta)
	if err != nil {
		return Award{}, fmt.Errorf("award points: %w", err)
	}

	// A concurrent award can push the stored totals past a threshold the
	// pre-write stats did not reach.
	awarded := delta.Badges
	late := e.newlyEarned(updated, Stats{Points: updated.Points, LessonsCompleted: updated.LessonsCompletedCount})
	if len(late) > 0 {
		if updated, err = e.store.ApplyRewardDelta(ctx, rec.StudentID, progress.RewardDelta{Badges: late}); err != nil {
			return Award{}, fmt.Errorf("award badges: %w", err)
		}
		awarded = append(awarded, late...)
	}

	if len(awarded) > 0 {
		e.logger.Info("badges awarded", "student_id", rec.StudentID, "badges", awarded)
	}
	return Award{
		NewTotal:              updated.Points,
		AwardedBadges:         awarded,
		LessonsCompletedCount: updated.LessonsCompletedCount,
		Record:                updated,
	}, nil
}

// newlyEarned evaluates badges in declaration order, skipping held ones.
func (e *Engine) newlyEarned(rec progress.Record, stats Stats) []string {
	out := []string{}
	for _, b := range e.badges {
		if rec.HasBadge(b.ID) {
			continue
		}
		if b.Earned(stats) {
			out = append(out, b.ID)
		}
	}
	return out
}

// Standing is one leaderboard row.
type Standing struct {
	Rank      int      `json:"rank"`
	StudentID string   `json:"studentId"`
	Points    int64    `json:"points"`
	Badges    []string `json:"badges"`
}

// Leaderboard ranks records by points descending, ties broken by student ID.
// limit <= 0 returns every student.
func Leaderboard(records []progress.Record, limit int) []Standing {
	sorted := append([]progress.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].StudentID < sorted[j].StudentID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]Standing, len(sorted))
	for i, r := range sorted {
		out[i] = Standing{Rank: i + 1, StudentID: r.StudentID, Points: r.Points, Badges: r.Badges}
	}
	return out
}

// Leaderboard loads every record from the engine's store and ranks it.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return Leaderboard(records, limit), nil
}
