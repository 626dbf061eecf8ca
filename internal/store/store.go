// Package store persists learner records. PostgresStore talks to the hosted
// record store; LocalStore keeps the same records in a local key-value
// backend and is used when PostgreSQL is unreachable at startup.
package store

import (
	"context"
	"time"
)

const dbTimeout = 5 * time.Second

// Storage modes reported by Store.Mode.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// ProgressStore persists module completion records.
type ProgressStore interface {
	// UpsertProgress merges patch into the record for key, creating it if needed.
	UpsertProgress(ctx context.Context, key ProgressKey, patch Patch) (ProgressRecord, error)
	// GetProgress returns nil when no record exists.
	GetProgress(ctx context.Context, key ProgressKey) (*ProgressRecord, error)
	// ListProgress returns the learner's records ordered by updated_at descending.
	ListProgress(ctx context.Context, userID string, filter ProgressFilter) ([]ProgressRecord, error)
}

// QuizStore persists quiz attempts.
type QuizStore interface {
	InsertQuizResult(ctx context.Context, r QuizResult) (QuizResult, error)
	// ListQuizResults returns attempts newest first. Empty moduleID means all modules.
	ListQuizResults(ctx context.Context, userID, moduleID string) ([]QuizResult, error)
}

// CertificateStore persists issued certificates.
type CertificateStore interface {
	InsertCertificate(ctx context.Context, c Certificate) (Certificate, error)
	// ListCertificates returns the learner's certificates newest first.
	ListCertificates(ctx context.Context, userID string) ([]Certificate, error)
	// CertificateByCode returns nil when the code is unknown.
	CertificateByCode(ctx context.Context, code string) (*Certificate, error)
}

// ActivityStore persists the activity log.
type ActivityStore interface {
	InsertActivity(ctx context.Context, e ActivityEntry) (ActivityEntry, error)
	// ListActivities returns up to limit entries newest first.
	ListActivities(ctx context.Context, userID string, limit int) ([]ActivityEntry, error)
}

// VideoStore persists video playback progress.
type VideoStore interface {
	// UpsertVideoProgress writes v. A nil CompletedAt keeps the stored value.
	UpsertVideoProgress(ctx context.Context, v VideoProgress) (VideoProgress, error)
	// GetVideoProgress returns nil when nothing was recorded.
	GetVideoProgress(ctx context.Context, userID, moduleID string, videoIndex int) (*VideoProgress, error)
}

// Store is the record store consumed by the tracker and certification engine.
type Store interface {
	ProgressStore
	QuizStore
	CertificateStore
	ActivityStore
	VideoStore

	// Mode reports ModeRemote or ModeLocal.
	Mode() string
	HealthCheck(ctx context.Context) error
}

// UserStore persists learner accounts. Only the remote store implements it.
type UserStore interface {
	// CreateUser returns apperr.ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u User, passwordHash string) (User, error)
	// UserByEmail returns the user and password hash, or apperr.ErrNotFound.
	UserByEmail(ctx context.Context, email string) (User, string, error)
	UserByID(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
