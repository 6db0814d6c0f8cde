// Package unlock enforces sequential gating of curriculum units and performs
// completion transitions.
package unlock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kidventure/kidventure/internal/curriculum"
	"github.com/kidventure/kidventure/internal/progress"
)

// IsUnlocked reports whether unitID may be attempted. The first unit of a
// track is always unlocked; any other unit requires its immediate predecessor
// to be complete. Units unknown to the curriculum are locked.
func IsUnlocked(cur *curriculum.Curriculum, progressFlags map[string]int, unitID string) bool {
	if _, ok := cur.Unit(unitID); !ok {
		return false
	}
	if cur.First(unitID) {
		return true
	}
	prev, ok := cur.Predecessor(unitID)
	if !ok {
		return false
	}
	return progressFlags[prev.ID] == 1
}

// Completion is the result of CompleteUnit.
type Completion struct {
	Record progress.Record
	Unit   curriculum.Unit
	// NewlyCompleted is false when the unit was already complete.
	NewlyCompleted bool
	// Next is the successor now unlocked, nil at the end of a track.
	Next *curriculum.Unit
}

// UnitState is a unit together with a student's access to it.
type UnitState struct {
	Unit      curriculum.Unit `json:"unit"`
	Unlocked  bool            `json:"unlocked"`
	Completed bool            `json:"completed"`
}

// Engine performs completion transitions against a progress store.
type Engine struct {
	curriculum *curriculum.Curriculum
	store      progress.Store
	logger     *slog.Logger
}

// NewEngine creates an unlock engine.
func NewEngine(cur *curriculum.Curriculum, store progress.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{curriculum: cur, store: store, logger: logger}
}

// Curriculum returns the curriculum the engine gates on.
func (e *Engine) Curriculum() *curriculum.Curriculum {
	return e.curriculum
}

// CompleteUnit marks unitID complete for the student. Completing a locked unit
// fails with *progress.LockedUnitError and leaves the record untouched;
// completing an already complete unit is a successful no-op.
func (e *Engine) CompleteUnit(ctx context.Context, studentID, unitID string) (Completion, error) {
	rec, err := e.store.Get(ctx, studentID)
	if err != nil {
		return Completion{}, err
	}
	if unitID, err = progress.NormalizeID("unitId", unitID); err != nil {
		return Completion{}, err
	}

	unit, ok := e.curriculum.Unit(unitID)
	if !ok {
		return Completion{}, &progress.LockedUnitError{UnitID: unitID}
	}
	if !IsUnlocked(e.curriculum, rec.Progress, unitID) {
		prev, _ := e.curriculum.Predecessor(unitID)
		return Completion{}, &progress.LockedUnitError{UnitID: unitID, Prerequisite: prev.ID}
	}

	out := Completion{Record: rec, Unit: unit}
	if next, ok := e.curriculum.Successor(unitID); ok {
		out.Next = &next
	}

	if rec.Completed(unitID) {
		e.logger.Debug("unit already complete", "student_id", rec.StudentID, "unit_id", unitID)
		return out, nil
	}

	updated, changed, err := e.store.ApplyUnitCompletion(ctx, rec.StudentID, unitID)
	if err != nil {
		return Completion{}, fmt.Errorf("complete unit %s: %w", unitID, err)
	}
	out.Record = updated
	if !changed {
		e.logger.Debug("unit completed concurrently", "student_id", rec.StudentID, "unit_id", unitID)
		return out, nil
	}
	out.NewlyCompleted = true

	e.logger.Info("unit completed", "student_id", rec.StudentID, "unit_id", unitID, "track", unit.Track)
	return out, nil
}

// States returns every unit in curriculum order with its unlock and
// completion state for rec.
func States(cur *curriculum.Curriculum, rec progress.Record) []UnitState {
	units := cur.Units()
	out := make([]UnitState, 0, len(units))
	for _, u := range units {
		out = append(out, UnitState{
			Unit:      u,
			Unlocked:  IsUnlocked(cur, rec.Progress, u.ID),
			Completed: rec.Completed(u.ID),
		})
	}
	return out
}

// NextUnits returns, per track, the first unit that is unlocked but not yet
// complete. Finished tracks are omitted.
func NextUnits(cur *curriculum.Curriculum, rec progress.Record) map[string]curriculum.Unit {
	out := make(map[string]curriculum.Unit)
	for _, track := range cur.Tracks() {
		for _, u := range cur.Track(track) {
			if rec.Completed(u.ID) {
				continue
			}
			if IsUnlocked(cur, rec.Progress, u.ID) {
				out[track] = u
			}
			break
		}
	}
	return out
}
