// Package progress records a learner's module completion, quiz attempts and
// video playback, and derives completion statistics from them.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
	"github.com/spbe-academy/devops-academy/internal/platform/validation"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// Identity reports who is signed in to the session.
type Identity interface {
	CurrentUser() *store.User
}

// TrackerConfig holds dependencies for a Tracker.
type TrackerConfig struct {
	Catalog  *curriculum.Loader
	Store    store.Store
	Identity Identity
	Activity activity.Logger  // default NopLogger
	Printer  *message.Printer // default Indonesian
	Now      func() time.Time // default time.Now
}

// Tracker records progress for the learner signed in to one session.
type Tracker struct {
	catalog  *curriculum.Loader
	store    store.Store
	identity Identity
	activity activity.Logger
	printer  *message.Printer
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]store.ProgressRecord
}

// NewTracker creates a tracker with an empty cache.
func NewTracker(cfg TrackerConfig) *Tracker {
	logger := cfg.Activity
	if logger == nil {
		logger = activity.NopLogger{}
	}
	printer := cfg.Printer
	if printer == nil {
		printer = i18n.NewPrinter("id")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		identity: cfg.Identity,
		activity: logger,
		printer:  printer,
		now:      now,
		cache:    make(map[string]store.ProgressRecord),
	}
}

func (t *Tracker) userID() (string, error) {
	u := t.identity.CurrentUser()
	if u == nil {
		return "", apperr.ErrNotAuthenticated
	}
	return u.ID, nil
}

// RecordProgress merges patch over the learner's record for a module.
func (t *Tracker) RecordProgress(ctx context.Context, curriculumID, levelID, moduleID string, patch store.Patch) (store.ProgressRecord, error) {
	userID, err := t.userID()
	if err != nil {
		return store.ProgressRecord{}, err
	}
	if err := t.catalog.Locate(curriculumID, levelID, moduleID); err != nil {
		return store.ProgressRecord{}, err
	}

	key := store.ProgressKey{UserID: userID, CurriculumID: curriculumID, LevelID: levelID, ModuleID: moduleID}
	rec, err := t.store.UpsertProgress(ctx, key, patch)
	if err != nil {
		slog.Error("failed to record progress", "user_id", userID, "module_id", moduleID, "error", err)
		return store.ProgressRecord{}, fmt.Errorf("recording progress for %s: %w", moduleID, err)
	}
	t.remember(rec)

	metrics.ProgressUpdates.WithLabelValues(curriculumID, fmt.Sprint(rec.Completed)).Inc()

	metadata := map[string]any{
		"curriculum_id": curriculumID,
		"level_id":      levelID,
		"module_id":     moduleID,
		"completed":     rec.Completed,
	}
	if rec.CompletionDate != nil {
		metadata["completion_date"] = rec.CompletionDate
	}
	t.log(ctx, userID, activity.TypeModuleProgress, t.printer.Sprintf(i18n.MsgModuleProgress, moduleID), metadata)

	return rec, nil
}

// MarkComplete records a module as completed now.
func (t *Tracker) MarkComplete(ctx context.Context, curriculumID, levelID, moduleID string) (store.ProgressRecord, error) {
	completed := true
	now := t.now()
	return t.RecordProgress(ctx, curriculumID, levelID, moduleID, store.Patch{
		Completed:      &completed,
		CompletionDate: &now,
	})
}

// GetProgress returns the learner's record for a module, or nil when the
// module has not been touched. Cached records of the current learner are
// served without a store read.
func (t *Tracker) GetProgress(ctx context.Context, curriculumID, levelID, moduleID string) (*store.ProgressRecord, error) {
	userID, err := t.userID()
	if err != nil {
		return nil, err
	}
	key := store.ProgressKey{UserID: userID, CurriculumID: curriculumID, LevelID: levelID, ModuleID: moduleID}

	t.mu.Lock()
	cached, ok := t.cache[key.CacheKey()]
	t.mu.Unlock()
	if ok && cached.UserID == userID {
		return &cached, nil
	}

	rec, err := t.store.GetProgress(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading progress for %s: %w", moduleID, err)
	}
	if rec != nil {
		t.remember(*rec)
	}
	return rec, nil
}

// AllProgress returns every record of the learner, most recently updated first.
func (t *Tracker) AllProgress(ctx context.Context) ([]store.ProgressRecord, error) {
	return t.list(ctx, store.ProgressFilter{})
}

// LevelProgress returns the learner's records for one level.
func (t *Tracker) LevelProgress(ctx context.Context, curriculumID, levelID string) ([]store.ProgressRecord, error) {
	return t.list(ctx, store.ProgressFilter{CurriculumID: curriculumID, LevelID: levelID})
}

// CurriculumProgress returns the learner's records for one curriculum.
func (t *Tracker) CurriculumProgress(ctx context.Context, curriculumID string) ([]store.ProgressRecord, error) {
	return t.list(ctx, store.ProgressFilter{CurriculumID: curriculumID})
}

func (t *Tracker) list(ctx context.Context, filter store.ProgressFilter) ([]store.ProgressRecord, error) {
	userID, err := t.userID()
	if err != nil {
		return nil, err
	}
	records, err := t.store.ListProgress(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	for _, r := range records {
		t.remember(r)
	}
	return records, nil
}

// ClearCache drops every cached record.
func (t *Tracker) ClearCache() {
	t.mu.Lock()
	t.cache = make(map[string]store.ProgressRecord)
	t.mu.Unlock()
}

// Refresh clears the cache and reloads it from the store.
func (t *Tracker) Refresh(ctx context.Context) ([]store.ProgressRecord, error) {
	t.ClearCache()
	return t.AllProgress(ctx)
}

// Cached reports how many records the cache holds.
func (t *Tracker) Cached() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cache)
}

func (t *Tracker) remember(r store.ProgressRecord) {
	t.mu.Lock()
	t.cache[r.Key().CacheKey()] = r
	t.mu.Unlock()
}

// Submission is one quiz attempt as reported by the client.
type Submission struct {
	Score          int   `json:"score" validate:"gte=0,lte=100"`
	TotalQuestions int   `json:"total_questions" validate:"gte=0"`
	CorrectAnswers int   `json:"correct_answers" validate:"gte=0,ltefield=TotalQuestions"`
	Answers        []int `json:"answers"`
}

// GradeQuiz scores answers against the module's quiz.
func (t *Tracker) GradeQuiz(moduleID string, answers []int) (Submission, error) {
	g, err := t.catalog.GradeQuiz(moduleID, answers)
	if err != nil {
		return Submission{}, err
	}
	return Submission{
		Score:          g.Score,
		TotalQuestions: g.Total,
		CorrectAnswers: g.Correct,
		Answers:        g.Answers,
	}, nil
}

// SaveQuizResult stores a new attempt. Earlier attempts are kept.
func (t *Tracker) SaveQuizResult(ctx context.Context, moduleID string, sub Submission) (store.QuizResult, error) {
	userID, err := t.userID()
	if err != nil {
		return store.QuizResult{}, err
	}
	if _, ok := t.catalog.GetModule(moduleID); !ok {
		return store.QuizResult{}, apperr.NewValidation("module_id", "exists")
	}
	if err := validation.Struct(sub); err != nil {
		return store.QuizResult{}, err
	}

	res, err := t.store.InsertQuizResult(ctx, store.QuizResult{
		UserID:         userID,
		ModuleID:       moduleID,
		Score:          sub.Score,
		TotalQuestions: sub.TotalQuestions,
		CorrectAnswers: sub.CorrectAnswers,
		Answers:        sub.Answers,
		CompletionDate: t.now(),
	})
	if err != nil {
		slog.Error("failed to save quiz result", "user_id", userID, "module_id", moduleID, "error", err)
		return store.QuizResult{}, fmt.Errorf("saving quiz result for %s: %w", moduleID, err)
	}

	passed := res.Score >= curriculum.PassingScore
	metrics.QuizAttempts.WithLabelValues(metrics.PassLabel(passed)).Inc()

	t.log(ctx, userID, activity.TypeQuizCompleted, t.printer.Sprintf(i18n.MsgQuizCompleted, moduleID), map[string]any{
		"module_id":       moduleID,
		"score":           res.Score,
		"total_questions": res.TotalQuestions,
		"correct_answers": res.CorrectAnswers,
		"passed":          passed,
	})
	return res, nil
}

// QuizResults returns the learner's attempts, newest first. An empty
// moduleID returns attempts for every module.
func (t *Tracker) QuizResults(ctx context.Context, moduleID string) ([]store.QuizResult, error) {
	userID, err := t.userID()
	if err != nil {
		return nil, err
	}
	results, err := t.store.ListQuizResults(ctx, userID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("listing quiz results: %w", err)
	}
	return results, nil
}

// TrackActivity appends a free-form entry to the learner's audit trail.
func (t *Tracker) TrackActivity(ctx context.Context, activityType, description string, metadata map[string]any) error {
	userID, err := t.userID()
	if err != nil {
		return err
	}
	if activityType == "" {
		return apperr.NewValidation("activity_type", "required")
	}
	return t.activity.LogActivity(ctx, store.ActivityEntry{
		UserID:      userID,
		Type:        activityType,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   t.now(),
	})
}

// DefaultActivityLimit is the page size of Activities when none is given.
const DefaultActivityLimit = 50

// Activities returns the learner's most recent audit entries.
func (t *Tracker) Activities(ctx context.Context, limit int) ([]store.ActivityEntry, error) {
	userID, err := t.userID()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	entries, err := t.store.ListActivities(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return entries, nil
}

// log records an activity entry. Failures are logged, never returned.
func (t *Tracker) log(ctx context.Context, userID, activityType, description string, metadata map[string]any) {
	err := t.activity.LogActivity(ctx, store.ActivityEntry{
		UserID:      userID,
		Type:        activityType,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   t.now(),
	})
	if err != nil {
		slog.Warn("failed to log activity", "user_id", userID, "activity_type", activityType, "error", err)
	}
}
