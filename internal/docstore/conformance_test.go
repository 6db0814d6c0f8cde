package docstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kidventure/kidventure/internal/docstore"
)

// runConformance exercises the Store contract against any backend.
func runConformance(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "students", "nobody")
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(context.Background(), "students", "nobody", docstore.Document{"points": 1})
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set replaces without merge", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "s1", docstore.Document{"a": "x", "b": "y"}, false)
		mustSet(t, s, "s1", docstore.Document{"a": "z"}, false)

		doc := mustGet(t, s, "s1")
		if diff := cmp.Diff(docstore.Document{"a": "z"}, doc); diff != "" {
			t.Errorf("document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("merge keeps existing fields", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "s1", docstore.Document{
			"studentId": "s1",
			"progress":  map[string]any{"lesson1": 1},
		}, false)
		mustSet(t, s, "s1", docstore.Document{
			"studentId": "s1",
			"progress":  map[string]any{"lesson2": 1},
		}, true)

		doc := mustGet(t, s, "s1")
		progress, ok := doc["progress"].(map[string]any)
		if !ok {
			t.Fatalf("progress = %T, want map", doc["progress"])
		}
		if len(progress) != 2 {
			t.Errorf("progress = %v, want lesson1 and lesson2", progress)
		}
	})

	t.Run("merge creates missing document", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "fresh", docstore.Document{"studentId": "fresh"}, true)
		doc := mustGet(t, s, "fresh")
		if doc["studentId"] != "fresh" {
			t.Errorf("studentId = %v, want fresh", doc["studentId"])
		}
	})

	t.Run("update dotted path and transforms", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSet(t, s, "s1", docstore.Document{"studentId": "s1"}, false)

		err := s.Update(ctx, "students", "s1", docstore.Document{
			"progress.lesson1": 1,
			"points":           docstore.Increment(95),
			"badges":           docstore.ArrayUnion("a"),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		err = s.Update(ctx, "students", "s1", docstore.Document{
			"points": docstore.Increment(10),
			"badges": docstore.ArrayUnion("a", "b"),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		doc := mustGet(t, s, "s1")
		points, err := docstore.AsInt64(doc["points"])
		if err != nil || points != 105 {
			t.Errorf("points = %v (%v), want 105", doc["points"], err)
		}
		if diff := cmp.Diff([]any{"a", "b"}, doc["badges"]); diff != "" {
			t.Errorf("badges mismatch (-want +got):\n%s", diff)
		}
		progress := doc["progress"].(map[string]any)
		if v, _ := docstore.AsInt64(progress["lesson1"]); v != 1 {
			t.Errorf("progress.lesson1 = %v, want 1", progress["lesson1"])
		}
	})

	t.Run("failed precondition writes nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSet(t, s, "s1", docstore.Document{"points": 5, "progress": map[string]any{"lesson1": 1}}, false)

		err := s.Update(ctx, "students", "s1", docstore.Document{
			"progress.lesson1": docstore.SetIfUnset(1),
			"points":           docstore.Increment(10),
		})
		if !errors.Is(err, docstore.ErrPrecondition) {
			t.Fatalf("Update() error = %v, want ErrPrecondition", err)
		}
		doc := mustGet(t, s, "s1")
		if v, _ := docstore.AsInt64(doc["points"]); v != 5 {
			t.Errorf("points = %v, want 5", doc["points"])
		}
	})

	t.Run("concurrent conditional sets apply once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSet(t, s, "s1", docstore.Document{"points": 0}, false)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Update(ctx, "students", "s1", docstore.Document{
					"progress.lesson1": docstore.SetIfUnset(1),
					"points":           docstore.Increment(10),
				})
			}()
		}
		wg.Wait()
		close(errs)

		applied := 0
		for err := range errs {
			switch {
			case err == nil:
				applied++
			case !errors.Is(err, docstore.ErrPrecondition):
				t.Fatalf("Update() error = %v", err)
			}
		}
		if applied != 1 {
			t.Errorf("applied = %d, want 1", applied)
		}
		doc := mustGet(t, s, "s1")
		if v, _ := docstore.AsInt64(doc["points"]); v != 10 {
			t.Errorf("points = %v, want 10", doc["points"])
		}
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSet(t, s, "s1", docstore.Document{"points": 0}, false)

		const n = 10
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Update(ctx, "students", "s1", docstore.Document{"points": docstore.Increment(1)})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
		}

		doc := mustGet(t, s, "s1")
		if v, _ := docstore.AsInt64(doc["points"]); v != n {
			t.Errorf("points = %v, want %d", doc["points"], n)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"c", "a", "b"} {
			mustSet(t, s, id, docstore.Document{"studentId": id}, false)
		}
		if err := s.Delete(ctx, "students", "b"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "students", "missing"); err != nil {
			t.Fatalf("Delete(missing) error = %v", err)
		}

		snaps, err := s.List(ctx, "students")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		var ids []string
		for _, snap := range snaps {
			ids = append(ids, snap.ID)
		}
		if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("collections are isolated", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "s1", docstore.Document{"x": 1}, false)
		snaps, err := s.List(context.Background(), "classes")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("List(classes) = %d docs, want 0", len(snaps))
		}
	})
}

func mustSet(t *testing.T, s docstore.Store, id string, doc docstore.Document, merge bool) {
	t.Helper()
	if err := s.Set(context.Background(), "students", id, doc, docstore.SetOptions{Merge: merge}); err != nil {
		t.Fatalf("Set(%s) error = %v", id, err)
	}
}

func mustGet(t *testing.T, s docstore.Store, id string) docstore.Document {
	t.Helper()
	doc, err := s.Get(context.Background(), "students", id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return doc
}

func uniquePrefix(t *testing.T) string {
	return fmt.Sprintf("test-%s", t.Name())
}
