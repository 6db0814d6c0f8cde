package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kidventure/kidventure/internal/docstore"
)

// Collection is the document collection holding progress records.
const Collection = "students"

// Document field names.
const (
	fieldStudentID        = "studentId"
	fieldProgress         = "progress"
	fieldPoints           = "points"
	fieldBadges           = "badges"
	fieldLessonsCompleted = "lessonsCompleted"
	fieldLessonsCount     = "lessonsCompletedCount"
)

var _ Store = (*DocStore)(nil)

// DocStore implements Store on a document store using only get, merge-set
// and dotted-path update.
type DocStore struct {
	docs docstore.Store
}

// NewDocStore creates a progress store over docs.
func NewDocStore(docs docstore.Store) *DocStore {
	return &DocStore{docs: docs}
}

func (s *DocStore) Get(ctx context.Context, studentID string) (Record, error) {
	id, err := NormalizeID("studentId", studentID)
	if err != nil {
		return Record{}, err
	}
	return s.get(ctx, id)
}

func (s *DocStore) CreateIfAbsent(ctx context.Context, studentID string) (Record, error) {
	id, err := NormalizeID("studentId", studentID)
	if err != nil {
		return Record{}, err
	}

	// Every value is a no-op against an existing record under merge.
	err = s.docs.Set(ctx, Collection, id, docstore.Document{
		fieldStudentID:        id,
		fieldProgress:         map[string]any{},
		fieldPoints:           docstore.Increment(0),
		fieldBadges:           docstore.ArrayUnion(),
		fieldLessonsCompleted: docstore.ArrayUnion(),
		fieldLessonsCount:     docstore.Increment(0),
	}, docstore.SetOptions{Merge: true})
	if err != nil {
		return Record{}, fmt.Errorf("create student %s: %w", id, err)
	}
	return s.get(ctx, id)
}

func (s *DocStore) ApplyUnitCompletion(ctx context.Context, studentID, unitID string) (Record, bool, error) {
	id, err := NormalizeID("studentId", studentID)
	if err != nil {
		return Record{}, false, err
	}
	unit, err := NormalizeID("unitId", unitID)
	if err != nil {
		return Record{}, false, err
	}

	changed := true
	err = s.update(ctx, id, docstore.Document{fieldProgress + "." + unit: docstore.SetIfUnset(1)})
	if errors.Is(err, docstore.ErrPrecondition) {
		changed, err = false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec, err := s.get(ctx, id)
	if err != nil {
		return Record{}, false, err
	}
	return rec, changed, nil
}

func (s *DocStore) ApplyRewardDelta(ctx context.Context, studentID string, delta RewardDelta) (Record, error) {
	id, err := NormalizeID("studentId", studentID)
	if err != nil {
		return Record{}, err
	}
	if delta.Points < 0 {
		return Record{}, InvalidArgument("points", "must not be negative")
	}

	fields := docstore.Document{fieldPoints: docstore.Increment(delta.Points)}
	if len(delta.Badges) > 0 {
		fields[fieldBadges] = docstore.ArrayUnion(delta.Badges...)
	}

	if delta.LessonUnitID != "" {
		unit, err := NormalizeID("unitId", delta.LessonUnitID)
		if err != nil {
			return Record{}, err
		}
		credited := docstore.Document{
			fieldLessonsCompleted: docstore.ArrayAppendUnique(unit),
			fieldLessonsCount:     docstore.Increment(1),
		}
		for k, v := range fields {
			credited[k] = v
		}
		err = s.update(ctx, id, credited)
		if err == nil {
			return s.get(ctx, id)
		}
		if !errors.Is(err, docstore.ErrPrecondition) {
			return Record{}, err
		}
		// Already credited: apply the rest of the delta on its own.
	}

	if err := s.update(ctx, id, fields); err != nil {
		return Record{}, err
	}
	return s.get(ctx, id)
}

func (s *DocStore) List(ctx context.Context) ([]Record, error) {
	snaps, err := s.docs.List(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make([]Record, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := decodeRecord(snap.ID, snap.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *DocStore) Delete(ctx context.Context, studentID string) error {
	id, err := NormalizeID("studentId", studentID)
	if err != nil {
		return err
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	return nil
}

func (s *DocStore) get(ctx context.Context, id string) (Record, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Record{}, &NotFoundError{StudentID: id, Err: err}
		}
		return Record{}, fmt.Errorf("get student %s: %w", id, err)
	}
	return decodeRecord(id, doc)
}

func (s *DocStore) update(ctx context.Context, id string, fields docstore.Document) error {
	if err := s.docs.Update(ctx, Collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return &NotFoundError{StudentID: id, Err: err}
		}
		return fmt.Errorf("update student %s: %w", id, err)
	}
	return nil
}

func decodeRecord(id string, doc docstore.Document) (Record, error) {
	rec := Record{
		StudentID:        id,
		Progress:         map[string]int{},
		Badges:           []string{},
		LessonsCompleted: []string{},
	}

	if v, ok := doc[fieldStudentID].(string); ok && v != "" {
		rec.StudentID = v
	}
	if raw, ok := doc[fieldProgress].(map[string]any); ok {
		for unit, flag := range raw {
			n, err := docstore.AsInt64(flag)
			if err != nil {
				return Record{}, fmt.Errorf("student %s: progress.%s: %w", id, unit, err)
			}
			rec.Progress[unit] = int(n)
		}
	}
	if v, ok := doc[fieldPoints]; ok {
		n, err := docstore.AsInt64(v)
		if err != nil {
			return Record{}, fmt.Errorf("student %s: points: %w", id, err)
		}
		rec.Points = n
	}
	if v, ok := doc[fieldLessonsCount]; ok {
		n, err := docstore.AsInt64(v)
		if err != nil {
			return Record{}, fmt.Errorf("student %s: lessonsCompletedCount: %w", id, err)
		}
		rec.LessonsCompletedCount = int(n)
	}

	var err error
	if rec.Badges, err = stringList(doc[fieldBadges]); err != nil {
		return Record{}, fmt.Errorf("student %s: badges: %w", id, err)
	}
	if rec.LessonsCompleted, err = stringList(doc[fieldLessonsCompleted]); err != nil {
		return Record{}, fmt.Errorf("student %s: lessonsCompleted: %w", id, err)
	}
	return rec, nil
}

func stringList(v any) ([]string, error) {
	out := []string{}
	if v == nil {
		return out, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("holds %T, not an array", v)
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %v is not a string", item)
		}
		out = append(out, s)
	}
	return out, nil
}
