package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

var _ Hub = (*RedisHub)(nil)

// RedisHub distributes changes across processes over Redis pub/sub, one
// channel per student: <prefix>:student:<id>.
type RedisHub struct {
	client *redis.Client
	prefix string

	mu   sync.Mutex
	subs map[*Subscription]struct{}
	wg   sync.WaitGroup
}

// NewRedisHub creates a hub on client. The client is owned by the caller.
func NewRedisHub(client *redis.Client, prefix string) (*RedisHub, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if prefix == "" {
		prefix = "kidventure"
	}
	return &RedisHub{client: client, prefix: prefix, subs: make(map[*Subscription]struct{})}, nil
}

func (h *RedisHub) channel(studentID string) string {
	return h.prefix + ":student:" + studentID
}

func (h *RedisHub) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := h.client.Publish(ctx, h.channel(change.StudentID), data).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, studentID string) (*Subscription, error) {
	pubsub := h.client.Subscribe(ctx, h.channel(studentID))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := newSubscription()
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	msgs := pubsub.Channel()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for msg := range msgs {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				slog.Warn("skipping malformed change", "channel", msg.Channel, "error", err)
				continue
			}
			if !sub.offer(change) {
				slog.Warn("live subscriber behind, change dropped",
					"student_id", change.StudentID,
					"change_id", change.ID,
				)
			}
		}
	}()

	sub.onClose(func() {
		pubsub.Close()
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	})
	sub.closeWith(ctx)
	return sub, nil
}

// Close ends every subscription and waits for their readers to exit.
func (h *RedisHub) Close() error {
	h.mu.Lock()
	all := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		all = append(all, sub)
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	h.wg.Wait()
	return nil
}
