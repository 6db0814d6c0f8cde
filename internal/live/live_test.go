package live_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kidventure/kidventure/internal/docstore"
	"github.com/kidventure/kidventure/internal/live"
	"github.com/kidventure/kidventure/internal/progress"
)

func receive(t *testing.T, sub *live.Subscription) live.Change {
	t.Helper()
	select {
	case c, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return live.Change{}
}

func TestMemoryHub_DeliversToStudentSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	defer hub.Close()
	ctx := context.Background()

	s1, err := hub.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer s1.Close()
	s2, err := hub.Subscribe(ctx, "s2")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer s2.Close()

	change := live.NewChange(live.KindUnitCompleted, progress.Record{StudentID: "s1", Points: 10})
	if err := hub.Publish(ctx, change); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := receive(t, s1)
	if got.ID != change.ID || got.Record.Points != 10 {
		t.Errorf("received %+v, want %+v", got, change)
	}
	select {
	case c := <-s2.C():
		t.Errorf("s2 received change for another student: %+v", c)
	default:
	}
}

func TestMemoryHub_ContextEndsSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := hub.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("unexpected change")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if n := hub.Subscribers("s1"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestMemoryHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = hub.Publish(ctx, live.NewChange(live.KindRewardApplied, progress.Record{StudentID: "s1"}))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestMemoryHub_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	sub, err := hub.Subscribe(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := hub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-sub.C(); ok {
		t.Error("subscription still open after hub Close")
	}
	if err := hub.Publish(context.Background(), live.Change{StudentID: "s1"}); err == nil {
		t.Error("Publish after Close should fail")
	}
	if _, err := hub.Subscribe(context.Background(), "s1"); err == nil {
		t.Error("Subscribe after Close should fail")
	}
	sub.Close()
}

func TestNotifyingStore_PublishesWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	defer hub.Close()
	ctx := context.Background()
	store := live.NewNotifyingStore(progress.NewDocStore(docstore.NewMemory()), hub, nil)

	sub, err := hub.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if _, err := store.CreateIfAbsent(ctx, "s1"); err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if _, _, err := store.ApplyUnitCompletion(ctx, "s1", "lesson1"); err != nil {
		t.Fatalf("ApplyUnitCompletion() error = %v", err)
	}
	// A repeat completion changes nothing and is not published.
	if _, changed, err := store.ApplyUnitCompletion(ctx, "s1", "lesson1"); err != nil || changed {
		t.Fatalf("ApplyUnitCompletion(repeat) = %v, %v, want unchanged", changed, err)
	}
	if _, err := store.ApplyRewardDelta(ctx, "s1", progress.RewardDelta{Points: 10}); err != nil {
		t.Fatalf("ApplyRewardDelta() error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	want := []string{live.KindRegistered, live.KindUnitCompleted, live.KindRewardApplied, live.KindDeleted}
	for _, kind := range want {
		if got := receive(t, sub); got.Kind != kind {
			t.Errorf("Kind = %q, want %q", got.Kind, kind)
		}
	}
}

func TestNotifyingStore_FailedWriteNotPublished(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := live.NewMemoryHub()
	defer hub.Close()
	ctx := context.Background()
	store := live.NewNotifyingStore(progress.NewDocStore(docstore.NewMemory()), hub, nil)

	sub, err := hub.Subscribe(ctx, "ghost")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	_, _, err = store.ApplyUnitCompletion(ctx, "ghost", "lesson1")
	if !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("ApplyUnitCompletion() error = %v, want ErrNotFound", err)
	}
	select {
	case c := <-sub.C():
		t.Errorf("unexpected change %+v", c)
	default:
	}
}

type closedHub struct{ live.Hub }

func (closedHub) Publish(context.Context, live.Change) error { return errors.New("hub down") }

func TestNotifyingStore_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := live.NewNotifyingStore(progress.NewDocStore(docstore.NewMemory()), closedHub{}, nil)
	if _, err := store.CreateIfAbsent(context.Background(), "s1"); err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
}
