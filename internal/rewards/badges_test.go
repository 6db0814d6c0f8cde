package rewards_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kidventure/kidventure/internal/rewards"
)

func TestBadge_Earned(t *testing.T) {
	tests := []struct {
		badge rewards.Badge
		stats rewards.Stats
		want  bool
	}{
		{rewards.DefaultBadges()[0], rewards.Stats{Points: 99}, false},
		{rewards.DefaultBadges()[0], rewards.Stats{Points: 100}, true},
		{rewards.DefaultBadges()[1], rewards.Stats{LessonsCompleted: 5}, true},
		{rewards.DefaultBadges()[2], rewards.Stats{LessonsCompleted: 9, Points: 1000}, false},
		{rewards.Badge{ID: "x", Metric: "stars", Threshold: 1}, rewards.Stats{Points: 10}, false},
	}
	for _, tt := range tests {
		if got := tt.badge.Earned(tt.stats); got != tt.want {
			t.Errorf("%s.Earned(%+v) = %v, want %v", tt.badge.ID, tt.stats, got, tt.want)
		}
	}
}

func TestLoadBadges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badges.yaml")
	content := `badges:
  - id: 50PointsBadge
    name: Fifty
    metric: points
    threshold: 50
  - id: 3LessonsBadge
    metric: lessons
    threshold: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	badges, err := rewards.LoadBadges(path)
	if err != nil {
		t.Fatalf("LoadBadges() error = %v", err)
	}
	if len(badges) != 2 || badges[0].ID != "50PointsBadge" || badges[1].Metric != rewards.MetricLessons {
		t.Errorf("LoadBadges() = %+v", badges)
	}
}

func TestLoadBadges_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "badges: []\n", "no badges"},
		{"duplicate", "badges:\n  - {id: a, metric: points, threshold: 1}\n  - {id: a, metric: points, threshold: 2}\n", "duplicate"},
		{"metric", "badges:\n  - {id: a, metric: stars, threshold: 1}\n", "unknown metric"},
		{"threshold", "badges:\n  - {id: a, metric: points, threshold: 0}\n", "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "badges.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := rewards.LoadBadges(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadBadges() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
