// Package activity records the learner audit trail and streams events to
// connected clients.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spbe-academy/devops-academy/internal/store"
)

// Activity types written by the tracker, certification engine and identity manager.
const (
	TypeModuleProgress    = "MODULE_PROGRESS"
	TypeQuizCompleted     = "QUIZ_COMPLETED"
	TypeCertificateEarned = "CERTIFICATE_EARNED"
	TypeVideoCompleted    = "VIDEO_COMPLETED"
	TypeUserLogin         = "USER_LOGIN"
	TypeUserLogout        = "USER_LOGOUT"
)

// Logger defines activity logging behavior.
type Logger interface {
	LogActivity(ctx context.Context, entry store.ActivityEntry) error
}

// NopLogger ignores all entries.
type NopLogger struct{}

func (NopLogger) LogActivity(context.Context, store.ActivityEntry) error {
	return nil
}

// MemoryLogger keeps entries in memory for tests.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []store.ActivityEntry
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		entries: []store.ActivityEntry{},
	}
}

func (l *MemoryLogger) LogActivity(_ context.Context, entry store.ActivityEntry) error {
	if entry.Type == "" {
		return fmt.Errorf("activity_type is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return nil
}

// Entries returns logged entries in logging order.
func (l *MemoryLogger) Entries() []store.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.ActivityEntry{}, l.entries...)
}

// Types returns the type of each logged entry in logging order.
func (l *MemoryLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		types = append(types, e.Type)
	}
	return types
}

// StoreLogger writes entries to the record store.
type StoreLogger struct {
	store store.ActivityStore
}

func NewStoreLogger(s store.ActivityStore) *StoreLogger {
	return &StoreLogger{store: s}
}

func (l *StoreLogger) LogActivity(ctx context.Context, entry store.ActivityEntry) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("activity store is nil")
	}
	if entry.Type == "" {
		return fmt.Errorf("activity_type is required")
	}
	if entry.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if _, err := l.store.InsertActivity(ctx, entry); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}

	slog.Debug("activity logged",
		"type", entry.Type,
		"user_id", entry.UserID,
	)
	return nil
}

// MultiLogger fans an entry out to every logger and joins their errors.
type MultiLogger []Logger

func (m MultiLogger) LogActivity(ctx context.Context, entry store.ActivityEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.LogActivity(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
