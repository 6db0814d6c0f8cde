// Package progress holds the per-student progress record and the store
// contract the unlock and rewards engines are written against.
package progress

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is the persisted progress of one student.
type Record struct {
	StudentID string         `json:"studentId"`
	Progress  map[string]int `json:"progress"`
	Points    int64          `json:"points"`
	Badges    []string       `json:"badges"`
	// LessonsCompleted lists the lesson unit IDs already credited toward
	// LessonsCompletedCount.
	LessonsCompleted      []string `json:"lessonsCompleted"`
	LessonsCompletedCount int      `json:"lessonsCompletedCount"`
}

// Completed reports whether the unit's completion flag is set.
func (r Record) Completed(unitID string) bool {
	return r.Progress[unitID] == 1
}

// HasBadge reports whether the badge has been awarded.
func (r Record) HasBadge(id string) bool {
	return slices.Contains(r.Badges, id)
}

// LessonCredited reports whether a lesson already counts toward LessonsCompletedCount.
func (r Record) LessonCredited(unitID string) bool {
	return slices.Contains(r.LessonsCompleted, unitID)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Progress = make(map[string]int, len(r.Progress))
	for k, v := range r.Progress {
		out.Progress[k] = v
	}
	out.Badges = append([]string{}, r.Badges...)
	out.LessonsCompleted = append([]string{}, r.LessonsCompleted...)
	return out
}

// RewardDelta is one rewards write.
type RewardDelta struct {
	Points int64
	Badges []string
	// LessonUnitID, when set, credits a first-time lesson completion. A lesson
	// already credited is ignored.
	LessonUnitID string
}

// Store reads and writes progress records by student ID. Implementations
// return *NotFoundError for unknown students and propagate persistence
// failures wrapped.
type Store interface {
	Get(ctx context.Context, studentID string) (Record, error)
	// CreateIfAbsent returns the existing record or a new zero-valued one.
	// It never overwrites.
	CreateIfAbsent(ctx context.Context, studentID string) (Record, error)
	// ApplyUnitCompletion sets the unit's completion flag atomically. changed
	// is false when the flag was already set, including by a concurrent call.
	ApplyUnitCompletion(ctx context.Context, studentID, unitID string) (rec Record, changed bool, err error)
	// ApplyRewardDelta applies a reward write atomically. Lesson credit is
	// decided inside the write, so a lesson is never counted twice.
	ApplyRewardDelta(ctx context.Context, studentID string, delta RewardDelta) (Record, error)
	// List returns every record ordered by student ID.
	List(ctx context.Context) ([]Record, error)
	// Delete removes a record. Administrative only.
	Delete(ctx context.Context, studentID string) error
}

// NormalizeID trims and NFC-normalizes an identifier.
func NormalizeID(field, id string) (string, error) {
	id = norm.NFC.String(strings.TrimSpace(id))
	if id == "" {
		return "", InvalidArgument(field, "must not be empty")
	}
	if strings.ContainsAny(id, "./") {
		return "", InvalidArgument(field, "must not contain '.' or '/'")
	}
	return id, nil
}
