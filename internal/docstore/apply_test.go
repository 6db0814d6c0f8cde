package docstore_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kidventure/kidventure/internal/docstore"
)

func TestApplyUpdate_DottedPaths(t *testing.T) {
	doc := docstore.Document{"progress": map[string]any{"lesson1": json.Number("1")}}

	err := docstore.ApplyUpdate(doc, docstore.Document{
		"progress.lesson2":  1,
		"stats.streak.days": 3,
	})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	want := docstore.Document{
		"progress": map[string]any{"lesson1": json.Number("1"), "lesson2": 1},
		"stats":    map[string]any{"streak": map[string]any{"days": 3}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyUpdate_InvalidPath(t *testing.T) {
	tests := []string{"", "progress.", ".lesson1", "a..b"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			err := docstore.ApplyUpdate(docstore.Document{}, docstore.Document{path: 1})
			if err == nil {
				t.Errorf("ApplyUpdate(%q) should fail", path)
			}
		})
	}
}

func TestIncrement(t *testing.T) {
	tests := []struct {
		name    string
		current any
		by      int64
		want    int64
		wantErr bool
	}{
		{"missing field", nil, 5, 5, false},
		{"json number", json.Number("95"), 10, 105, false},
		{"int", 3, 0, 3, false},
		{"float integral", float64(40), 2, 42, false},
		{"float fractional", 1.5, 1, 0, true},
		{"string", "ten", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docstore.Document{}
			if tt.current != nil {
				doc["points"] = tt.current
			}
			err := docstore.ApplyUpdate(doc, docstore.Document{"points": docstore.Increment(tt.by)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := docstore.AsInt64(doc["points"])
			if err != nil {
				t.Fatalf("AsInt64() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("points = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArrayUnion(t *testing.T) {
	doc := docstore.Document{"badges": []any{"100PointsBadge"}}

	err := docstore.ApplyUpdate(doc, docstore.Document{
		"badges": docstore.ArrayUnion("5LessonsBadge", "100PointsBadge", "5LessonsBadge"),
	})
	if err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	want := []any{"100PointsBadge", "5LessonsBadge"}
	if diff := cmp.Diff(want, doc["badges"]); diff != "" {
		t.Errorf("badges mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayUnion_NotAnArray(t *testing.T) {
	doc := docstore.Document{"badges": "oops"}
	err := docstore.ApplyUpdate(doc, docstore.Document{"badges": docstore.ArrayUnion("x")})
	if err == nil {
		t.Error("ArrayUnion over a string field should fail")
	}
}

func TestSetIfUnset(t *testing.T) {
	tests := []struct {
		name    string
		current any
		wantErr error
	}{
		{"missing field", nil, nil},
		{"different value", json.Number("0"), nil},
		{"same json number", json.Number("1"), docstore.ErrPrecondition},
		{"same int", 1, docstore.ErrPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docstore.Document{"progress": map[string]any{}}
			if tt.current != nil {
				doc["progress"] = map[string]any{"lesson1": tt.current}
			}
			err := docstore.ApplyUpdate(doc, docstore.Document{"progress.lesson1": docstore.SetIfUnset(1)})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ApplyUpdate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if v, _ := docstore.AsInt64(doc["progress"].(map[string]any)["lesson1"]); v != 1 {
				t.Errorf("progress.lesson1 = %v, want 1", v)
			}
		})
	}
}

func TestArrayAppendUnique(t *testing.T) {
	doc := docstore.Document{"lessonsCompleted": []any{"lesson1"}}

	if err := docstore.ApplyUpdate(doc, docstore.Document{"lessonsCompleted": docstore.ArrayAppendUnique("lesson2")}); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}
	if diff := cmp.Diff([]any{"lesson1", "lesson2"}, doc["lessonsCompleted"]); diff != "" {
		t.Errorf("lessonsCompleted mismatch (-want +got):\n%s", diff)
	}

	err := docstore.ApplyUpdate(doc, docstore.Document{"lessonsCompleted": docstore.ArrayAppendUnique("lesson1")})
	if !errors.Is(err, docstore.ErrPrecondition) {
		t.Errorf("ApplyUpdate(existing) error = %v, want ErrPrecondition", err)
	}

	err = docstore.ApplyUpdate(docstore.Document{"lessonsCompleted": 3}, docstore.Document{"lessonsCompleted": docstore.ArrayAppendUnique("x")})
	if err == nil || errors.Is(err, docstore.ErrPrecondition) {
		t.Errorf("ApplyUpdate(non-array) error = %v, want type error", err)
	}
}

func TestApplySet(t *testing.T) {
	current := docstore.Document{
		"studentId": "s1",
		"points":    json.Number("10"),
		"progress":  map[string]any{"lesson1": json.Number("1")},
	}

	merged, err := docstore.ApplySet(current, docstore.Document{
		"studentId": "s1",
		"progress":  map[string]any{"lesson2": 1},
	}, docstore.SetOptions{Merge: true})
	if err != nil {
		t.Fatalf("ApplySet(merge) error = %v", err)
	}
	if merged["points"] != json.Number("10") {
		t.Errorf("merge dropped points: %v", merged["points"])
	}
	if len(merged["progress"].(map[string]any)) != 2 {
		t.Errorf("merge progress = %v, want two entries", merged["progress"])
	}

	replaced, err := docstore.ApplySet(docstore.Document{"points": 1}, docstore.Document{"studentId": "s1"}, docstore.SetOptions{})
	if err != nil {
		t.Fatalf("ApplySet() error = %v", err)
	}
	if _, ok := replaced["points"]; ok {
		t.Error("non-merge set kept an old field")
	}
}
