package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

// Keys of the documents kept by LocalStore.
const (
	KeyProgress      = "spbe_progress"
	KeyQuizResults   = "spbe_quiz_results"
	KeyCertificates  = "spbe_certificates"
	KeyUser          = "spbe_user"
	KeyActivities    = "spbe_activities"
	KeyVideoProgress = "spbe_video_progress"
)

// MaxLocalActivities is how many activity entries LocalStore retains.
const MaxLocalActivities = 100

// LocalStore keeps learner records as JSON lists in a kv.Store. Every list is
// kept newest first, so list order is the read order.
type LocalStore struct {
	kv  kv.Store
	now func() time.Time
	mu  sync.Mutex
}

// NewLocalStore creates a local record store over backend.
func NewLocalStore(backend kv.Store) *LocalStore {
	return &LocalStore{kv: backend, now: time.Now}
}

func (s *LocalStore) Mode() string { return ModeLocal }

func (s *LocalStore) HealthCheck(ctx context.Context) error {
	_, _, err := s.kv.Get(ctx, KeyProgress)
	return err
}

// load reads the list under key into v; a missing key leaves v untouched.
func (s *LocalStore) load(ctx context.Context, key string, v any) error {
	if _, err := kv.GetJSON(ctx, s.kv, key, v); err != nil {
		return fmt.Errorf("local %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) save(ctx context.Context, key string, v any) error {
	if err := kv.SetJSON(ctx, s.kv, key, v); err != nil {
		return fmt.Errorf("local %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) UpsertProgress(ctx context.Context, key ProgressKey, patch Patch) (ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []ProgressRecord
	if err := s.load(ctx, KeyProgress, &records); err != nil {
		return ProgressRecord{}, err
	}

	now := s.now()
	rec := ProgressRecord{
		ID:           uuid.NewString(),
		UserID:       key.UserID,
		CurriculumID: key.CurriculumID,
		LevelID:      key.LevelID,
		ModuleID:     key.ModuleID,
		CreatedAt:    now,
	}
	for i, r := range records {
		if r.Key() == key {
			rec = r
			records = append(records[:i], records[i+1:]...)
			break
		}
	}
	patch.Apply(&rec)
	rec.UpdatedAt = now

	records = append([]ProgressRecord{rec}, records...)
	if err := s.save(ctx, KeyProgress, records); err != nil {
		return ProgressRecord{}, err
	}

	slog.Debug("progress saved locally", "user_id", key.UserID, "module_id", key.ModuleID, "completed", rec.Completed)
	return rec, nil
}

func (s *LocalStore) GetProgress(ctx context.Context, key ProgressKey) (*ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []ProgressRecord
	if err := s.load(ctx, KeyProgress, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Key() == key {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *LocalStore) ListProgress(ctx context.Context, userID string, filter ProgressFilter) ([]ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []ProgressRecord
	if err := s.load(ctx, KeyProgress, &records); err != nil {
		return nil, err
	}
	out := []ProgressRecord{}
	for _, r := range records {
		if r.UserID == userID && filter.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *LocalStore) InsertQuizResult(ctx context.Context, r QuizResult) (QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []QuizResult
	if err := s.load(ctx, KeyQuizResults, &results); err != nil {
		return QuizResult{}, err
	}

	now := s.now()
	r.ID = uuid.NewString()
	r.Answers = nonNilInts(r.Answers)
	r.CreatedAt = now
	if r.CompletionDate.IsZero() {
		r.CompletionDate = now
	}

	results = append([]QuizResult{r}, results...)
	if err := s.save(ctx, KeyQuizResults, results); err != nil {
		return QuizResult{}, err
	}
	return r, nil
}

func (s *LocalStore) ListQuizResults(ctx context.Context, userID, moduleID string) ([]QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []QuizResult
	if err := s.load(ctx, KeyQuizResults, &results); err != nil {
		return nil, err
	}
	out := []QuizResult{}
	for _, r := range results {
		if r.UserID == userID && (moduleID == "" || r.ModuleID == moduleID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *LocalStore) InsertCertificate(ctx context.Context, c Certificate) (Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var certs []Certificate
	if err := s.load(ctx, KeyCertificates, &certs); err != nil {
		return Certificate{}, err
	}
	for _, existing := range certs {
		if existing.VerificationCode == c.VerificationCode {
			return Certificate{}, fmt.Errorf("insert certificate %s: %w", c.VerificationCode, apperr.ErrConflict)
		}
	}

	c.ID = uuid.NewString()
	if c.IssuedAt.IsZero() {
		c.IssuedAt = s.now()
	}

	certs = append([]Certificate{c}, certs...)
	if err := s.save(ctx, KeyCertificates, certs); err != nil {
		return Certificate{}, err
	}
	return c, nil
}

func (s *LocalStore) ListCertificates(ctx context.Context, userID string) ([]Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var certs []Certificate
	if err := s.load(ctx, KeyCertificates, &certs); err != nil {
		return nil, err
	}
	out := []Certificate{}
	for _, c := range certs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *LocalStore) CertificateByCode(ctx context.Context, code string) (*Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var certs []Certificate
	if err := s.load(ctx, KeyCertificates, &certs); err != nil {
		return nil, err
	}
	for _, c := range certs {
		if c.VerificationCode == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *LocalStore) InsertActivity(ctx context.Context, e ActivityEntry) (ActivityEntry, error) {
	if e.Type == "" {
		return ActivityEntry{}, fmt.Errorf("activity_type is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []ActivityEntry
	if err := s.load(ctx, KeyActivities, &entries); err != nil {
		return ActivityEntry{}, err
	}

	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	entries = append([]ActivityEntry{e}, entries...)
	if len(entries) > MaxLocalActivities {
		entries = entries[:MaxLocalActivities]
	}
	if err := s.save(ctx, KeyActivities, entries); err != nil {
		return ActivityEntry{}, err
	}
	return e, nil
}

func (s *LocalStore) ListActivities(ctx context.Context, userID string, limit int) ([]ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []ActivityEntry
	if err := s.load(ctx, KeyActivities, &entries); err != nil {
		return nil, err
	}
	out := []ActivityEntry{}
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *LocalStore) UpsertVideoProgress(ctx context.Context, v VideoProgress) (VideoProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []VideoProgress
	if err := s.load(ctx, KeyVideoProgress, &all); err != nil {
		return VideoProgress{}, err
	}

	for i, existing := range all {
		if sameVideo(existing, v) {
			if v.CompletedAt == nil {
				v.CompletedAt = existing.CompletedAt
			}
			all = append(all[:i], all[i+1:]...)
			break
		}
	}
	v.LastWatched = s.now()

	all = append([]VideoProgress{v}, all...)
	if err := s.save(ctx, KeyVideoProgress, all); err != nil {
		return VideoProgress{}, err
	}
	return v, nil
}

func (s *LocalStore) GetVideoProgress(ctx context.Context, userID, moduleID string, videoIndex int) (*VideoProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []VideoProgress
	if err := s.load(ctx, KeyVideoProgress, &all); err != nil {
		return nil, err
	}
	want := VideoProgress{UserID: userID, ModuleID: moduleID, VideoIndex: videoIndex}
	for _, v := range all {
		if sameVideo(v, want) {
			return &v, nil
		}
	}
	return nil, nil
}

func sameVideo(a, b VideoProgress) bool {
	return a.UserID == b.UserID && a.ModuleID == b.ModuleID && a.VideoIndex == b.VideoIndex
}
