package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/store"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

func TestMemoryLogger_LogActivity(t *testing.T) {
	logger := activity.NewMemoryLogger()

	err := logger.LogActivity(context.Background(), store.ActivityEntry{
		UserID:      "user-1",
		Type:        activity.TypeQuizCompleted,
		Description: "Quiz selesai untuk modul dp-b-1",
		Metadata: map[string]any{
			"score": 90,
		},
	})
	if err != nil {
		t.Fatalf("LogActivity() error = %v", err)
	}

	entries := logger.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Type != activity.TypeQuizCompleted {
		t.Errorf("Type = %q, want %s", entries[0].Type, activity.TypeQuizCompleted)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryLogger_RequiresType(t *testing.T) {
	if err := activity.NewMemoryLogger().LogActivity(context.Background(), store.ActivityEntry{UserID: "u"}); err == nil {
		t.Fatal("expected error for empty type")
	}
}

func TestStoreLogger_LogActivity(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(kv.NewMemoryStore())
	logger := activity.NewStoreLogger(s)

	if err := logger.LogActivity(ctx, store.ActivityEntry{UserID: "user-1", Type: activity.TypeUserLogin, Description: "User berhasil login"}); err != nil {
		t.Fatalf("LogActivity() error = %v", err)
	}
	if err := logger.LogActivity(ctx, store.ActivityEntry{Type: activity.TypeUserLogin}); err == nil {
		t.Error("expected error for missing user_id")
	}

	entries, err := s.ListActivities(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Type != activity.TypeUserLogin {
		t.Errorf("entries = %+v", entries)
	}
}

func TestStoreLogger_NilStore(t *testing.T) {
	logger := activity.NewStoreLogger(nil)
	if err := logger.LogActivity(context.Background(), store.ActivityEntry{UserID: "u", Type: activity.TypeUserLogin}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

type failingLogger struct{}

func (failingLogger) LogActivity(context.Context, store.ActivityEntry) error {
	return errors.New("boom")
}

func TestMultiLogger(t *testing.T) {
	mem := activity.NewMemoryLogger()
	multi := activity.MultiLogger{failingLogger{}, mem, activity.NopLogger{}}

	err := multi.LogActivity(context.Background(), store.ActivityEntry{UserID: "u", Type: activity.TypeVideoCompleted})
	if err == nil {
		t.Error("expected joined error from failing logger")
	}
	if len(mem.Entries()) != 1 {
		t.Errorf("memory logger got %d entries, want 1 despite earlier failure", len(mem.Entries()))
	}
}

func TestBroker_PublishSubscribe(t *testing.T) {
	b := activity.NewBroker()
	defer b.Close()

	events, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", b.Subscribers())
	}

	b.LogActivity(context.Background(), store.ActivityEntry{UserID: "u", Type: activity.TypeModuleProgress})

	select {
	case ev := <-events:
		if ev.Kind != activity.KindActivity || ev.Type != activity.TypeModuleProgress {
			t.Errorf("event = %+v", ev)
		}
		if ev.At.IsZero() {
			t.Error("event time should be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}
	cancel() // second cancel is a no-op
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := activity.NewBroker()
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(activity.Event{Kind: activity.KindIdentity, Type: "SIGNED_IN"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestBroker_Close(t *testing.T) {
	b := activity.NewBroker()
	events, cancel := b.Subscribe()
	b.Close()

	if _, ok := <-events; ok {
		t.Error("channel should be closed after broker Close")
	}
	cancel()

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed broker should return a closed channel")
	}
}
