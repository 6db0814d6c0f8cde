package rewards

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metric is the record statistic a badge threshold applies to.
type Metric string

const (
	MetricPoints  Metric = "points"
	MetricLessons Metric = "lessons"
)

// Badge IDs of the default badge set.
const (
	Badge100Points = "100PointsBadge"
	Badge5Lessons  = "5LessonsBadge"
	Badge10Lessons = "10LessonsBadge"
)

// Stats are the values badges are evaluated against.
type Stats struct {
	Points           int64
	LessonsCompleted int
}

// Badge is a threshold rule over Stats.
type Badge struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Metric      Metric `yaml:"metric" json:"metric"`
	Threshold   int64  `yaml:"threshold" json:"threshold"`
}

// Earned reports whether s meets the badge threshold.
func (b Badge) Earned(s Stats) bool {
	switch b.Metric {
	case MetricPoints:
		return s.Points >= b.Threshold
	case MetricLessons:
		return int64(s.LessonsCompleted) >= b.Threshold
	default:
		return false
	}
}

// DefaultBadges returns the built-in badge set in evaluation order.
func DefaultBadges() []Badge {
	return []Badge{
		{ID: Badge100Points, Name: "100 Points", Description: "Earned 100 points", Metric: MetricPoints, Threshold: 100},
		{ID: Badge5Lessons, Name: "5 Lessons", Description: "Completed 5 lessons", Metric: MetricLessons, Threshold: 5},
		{ID: Badge10Lessons, Name: "10 Lessons", Description: "Completed 10 lessons", Metric: MetricLessons, Threshold: 10},
	}
}

// ValidateBadges checks IDs are unique and non-empty, metrics known and
// thresholds positive.
func ValidateBadges(badges []Badge) error {
	seen := make(map[string]bool, len(badges))
	for i, b := range badges {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("badge %d: empty id", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
		if b.Metric != MetricPoints && b.Metric != MetricLessons {
			return fmt.Errorf("badge %q: unknown metric %q", b.ID, b.Metric)
		}
		if b.Threshold <= 0 {
			return fmt.Errorf("badge %q: threshold must be positive", b.ID)
		}
	}
	return nil
}

// LoadBadges reads a YAML badge file:
//
//	badges:
//	  - id: 100PointsBadge
//	    metric: points
//	    threshold: 100
func LoadBadges(path string) ([]Badge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}
	var file struct {
		Badges []Badge `yaml:"badges"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse badges %s: %w", path, err)
	}
	if len(file.Badges) == 0 {
		return nil, fmt.Errorf("parse badges %s: no badges defined", path)
	}
	if err := ValidateBadges(file.Badges); err != nil {
		return nil, fmt.Errorf("badges %s: %w", path, err)
	}
	return file.Badges, nil
}
