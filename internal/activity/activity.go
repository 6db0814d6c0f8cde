// Package activity records a per-student log of progression events.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	StudentRegistered = "student_registered"
	UnitCompleted     = "unit_completed"
	PointsAwarded     = "points_awarded"
	BadgeAwarded      = "badge_awarded"
	StudentDeleted    = "student_deleted"
)

// Event is one entry in a student's activity log.
type Event struct {
	StudentID string         `json:"studentId"`
	UnitID    string         `json:"unitId,omitempty"`
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (e Event) validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.StudentID == "" {
		return fmt.Errorf("student_id is required")
	}
	return nil
}

// Logger records events.
type Logger interface {
	LogEvent(ctx context.Context, event Event) error
}

// Reader returns the most recent events of a student, newest first.
type Reader interface {
	Recent(ctx context.Context, studentID string, limit int) ([]Event, error)
}

// NopLogger ignores all events.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, Event) error { return nil }

func (NopLogger) Recent(context.Context, string, int) ([]Event, error) { return []Event{}, nil }

// MemoryLogger keeps events in memory.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{events: []Event{}}
}

func (l *MemoryLogger) LogEvent(_ context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return nil
}

// Events returns every logged event in insertion order.
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

func (l *MemoryLogger) Recent(_ context.Context, studentID string, limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Event{}
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].StudentID != studentID {
			continue
		}
		out = append(out, l.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// PostgresLogger inserts events into the activity_events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("activity logger pool is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO activity_events (student_id, unit_id, event_type, data, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4::jsonb, $5)`,
		event.StudentID,
		event.UnitID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}

	slog.Debug("activity logged",
		"type", event.EventType,
		"student_id", event.StudentID,
		"unit_id", event.UnitID,
	)
	return nil
}

func (l *PostgresLogger) Recent(ctx context.Context, studentID string, limit int) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("activity logger pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT student_id, COALESCE(unit_id, ''), event_type, data, created_at
		 FROM activity_events
		 WHERE student_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		studentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var ev Event
		var raw []byte
		if err := rows.Scan(&ev.StudentID, &ev.UnitID, &ev.EventType, &raw, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		if err := json.Unmarshal(raw, &ev.Data); err != nil {
			return nil, fmt.Errorf("decode activity data: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity events: %w", err)
	}
	return out, nil
}

// RedisLogger keeps a capped list of recent events per student.
type RedisLogger struct {
	client *redis.Client
	prefix string
	max    int64
}

// NewRedisLogger creates a logger keeping at most maxPerStudent events per
// student under <prefix>:activity:<studentID>.
func NewRedisLogger(client *redis.Client, prefix string, maxPerStudent int64) *RedisLogger {
	if prefix == "" {
		prefix = "kidventure"
	}
	if maxPerStudent <= 0 {
		maxPerStudent = 200
	}
	return &RedisLogger{client: client, prefix: prefix, max: maxPerStudent}
}

func (l *RedisLogger) key(studentID string) string {
	return l.prefix + ":activity:" + studentID
}

func (l *RedisLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("activity logger client is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := l.key(event.StudentID)
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, l.max-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push activity event: %w", err)
	}
	return nil
}

func (l *RedisLogger) Recent(ctx context.Context, studentID string, limit int) ([]Event, error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("activity logger client is nil")
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := l.client.LRange(ctx, l.key(studentID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity events: %w", err)
	}

	out := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode activity event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

var (
	_ Logger = NopLogger{}
	_ Logger = (*MemoryLogger)(nil)
	_ Logger = (*PostgresLogger)(nil)
	_ Logger = (*RedisLogger)(nil)
	_ Reader = NopLogger{}
	_ Reader = (*MemoryLogger)(nil)
	_ Reader = (*PostgresLogger)(nil)
	_ Reader = (*RedisLogger)(nil)
)
