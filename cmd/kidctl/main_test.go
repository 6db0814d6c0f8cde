package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/kidventure/kidventure/internal/progress"
	"github.com/kidventure/kidventure/internal/progression"
)

// kidctl runs the CLI against a sqlite file so state survives between calls.
func kidctl(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--store", "sqlite", "--sqlite", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := kidctl(t, db, args...)
	if err != nil {
		t.Fatalf("kidctl %v: %v", args, err)
	}
	return out
}

func TestStudentLifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "kid.db")

	var rec progress.Record
	if err := json.Unmarshal([]byte(mustRun(t, db, "student", "create", "alice")), &rec); err != nil {
		t.Fatalf("decode create output: %v", err)
	}
	if rec.StudentID != "alice" || rec.Points != 0 {
		t.Errorf("created record = %+v", rec)
	}

	var out progression.Outcome
	if err := json.Unmarshal([]byte(mustRun(t, db, "unit", "complete", "alice", "lesson1")), &out); err != nil {
		t.Fatalf("decode complete output: %v", err)
	}
	if !out.NewlyCompleted || out.Record.Progress["lesson1"] != 1 {
		t.Errorf("outcome = %+v, want lesson1 newly completed", out)
	}

	mustRun(t, db, "points", "award", "alice", "lesson1", "95")

	var snap progression.Snapshot
	if err := json.Unmarshal([]byte(mustRun(t, db, "student", "show", "alice")), &snap); err != nil {
		t.Fatalf("decode show output: %v", err)
	}
	if snap.Record.Points != 105 {
		t.Errorf("points = %d, want 105", snap.Record.Points)
	}
	if len(snap.Record.Badges) != 1 || snap.Record.Badges[0] != "100PointsBadge" {
		t.Errorf("badges = %v, want [100PointsBadge]", snap.Record.Badges)
	}

	board := mustRun(t, db, "leaderboard")
	if !strings.Contains(board, "alice") || !strings.Contains(board, "105") {
		t.Errorf("leaderboard output:\n%s", board)
	}

	mustRun(t, db, "student", "delete", "alice")
	_, err := kidctl(t, db, "student", "show", "alice")
	if !errors.Is(err, progress.ErrNotFound) {
		t.Errorf("show after delete error = %v, want ErrNotFound", err)
	}
}

func TestUnitComplete_Locked(t *testing.T) {
	db := filepath.Join(t.TempDir(), "kid.db")
	mustRun(t, db, "student", "create", "bob")

	_, err := kidctl(t, db, "unit", "complete", "bob", "lesson3")
	if !errors.Is(err, progress.ErrLockedUnit) {
		t.Errorf("error = %v, want ErrLockedUnit", err)
	}
}

func TestPointsAward_InvalidPoints(t *testing.T) {
	db := filepath.Join(t.TempDir(), "kid.db")
	mustRun(t, db, "student", "create", "bob")

	tests := []struct {
		name   string
		points string
	}{
		{name: "not a number", points: "ten"},
		{name: "negative", points: "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kidctl(t, db, "points", "award", "bob", "lesson1", tt.points)
			if !errors.Is(err, progress.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestReportExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "kid.db")
	report := filepath.Join(dir, "report.xlsx")
	mustRun(t, db, "student", "create", "alice")
	mustRun(t, db, "unit", "complete", "alice", "lesson1")

	out := mustRun(t, db, "report", "export", "--out", report)
	if !strings.Contains(out, "wrote 1 students") {
		t.Errorf("output = %q", out)
	}

	f, err := excelize.OpenFile(report)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	v, err := f.GetCellValue("Progress", "A2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if v != "alice" {
		t.Errorf("A2 = %q, want alice", v)
	}
}

func TestCurriculumValidate(t *testing.T) {
	dir := t.TempDir()
	track := `track: Shapes
units:
  - id: shapes-intro
    kind: lesson
    title: Meet the shapes
  - id: shapes-practice
    kind: exercise
    title: Shape practice
`
	if err := os.WriteFile(filepath.Join(dir, "shapes.yaml"), []byte(track), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, filepath.Join(dir, "kid.db"), "curriculum", "validate", dir)
	if out != "ok: 1 files, 1 tracks, 2 units\n" {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("track: Broken\nunits:\n  - id: x\n    kind: quiz\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := kidctl(t, filepath.Join(dir, "kid.db"), "curriculum", "validate", filepath.Dir(bad)); err == nil {
		t.Error("validate accepted an unknown unit kind")
	}
}

func TestCurriculumShow_Default(t *testing.T) {
	out := mustRun(t, filepath.Join(t.TempDir(), "kid.db"), "curriculum", "show")
	for _, want := range []string{"Q1-NumberSense", "lesson1", "q2-word-problems"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestAdminHashKey(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantErr bool
	}{
		{name: "argument", args: []string{"correct-horse-battery"}},
		{name: "stdin", stdin: "correct-horse-battery\n"},
		{name: "too short", args: []string{"short"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetIn(strings.NewReader(tt.stdin))
			cmd.SetArgs(append([]string{"admin", "hash-key", "--cost", "4"}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			hash := strings.TrimSpace(out.String())
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct-horse-battery")); err != nil {
				t.Errorf("hash does not match key: %v", err)
			}
		})
	}
}
