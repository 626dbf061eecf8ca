package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store"
	"github.com/spbe-academy/devops-academy/internal/store/kv"
)

func TestLocalStore_Suite(t *testing.T) {
	runStoreSuite(t, store.NewLocalStore(kv.NewMemoryStore()))
}

func TestLocalStore_Mode(t *testing.T) {
	s := store.NewLocalStore(kv.NewMemoryStore())
	if s.Mode() != store.ModeLocal {
		t.Errorf("Mode() = %q, want %q", s.Mode(), store.ModeLocal)
	}
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestLocalStore_ActivityCap(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(kv.NewMemoryStore())

	for i := 1; i <= store.MaxLocalActivities+5; i++ {
		if _, err := s.InsertActivity(ctx, store.ActivityEntry{
			UserID:      "u1",
			Type:        "MODULE_PROGRESS",
			Description: fmt.Sprintf("entry %d", i),
		}); err != nil {
			t.Fatalf("InsertActivity(%d) error = %v", i, err)
		}
	}

	entries, err := s.ListActivities(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(entries) != store.MaxLocalActivities {
		t.Fatalf("ListActivities() = %d entries, want %d", len(entries), store.MaxLocalActivities)
	}
	if entries[0].Description != "entry 105" {
		t.Errorf("newest entry = %q, want entry 105", entries[0].Description)
	}
	if entries[len(entries)-1].Description != "entry 6" {
		t.Errorf("oldest kept entry = %q, want entry 6", entries[len(entries)-1].Description)
	}
}

func TestLocalStore_PersistsThroughFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := kv.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	first := store.NewLocalStore(backend)
	done := true
	if _, err := first.UpsertProgress(ctx, key("u1", "dp-b-1"), store.Patch{Completed: &done}); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	reopened, _ := kv.NewFileStore(dir)
	second := store.NewLocalStore(reopened)
	rec, err := second.GetProgress(ctx, key("u1", "dp-b-1"))
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if rec == nil || !rec.Completed {
		t.Errorf("GetProgress() = %+v, want completed record", rec)
	}
}

func TestLocalStore_RejectsEmptyActivityType(t *testing.T) {
	s := store.NewLocalStore(kv.NewMemoryStore())
	if _, err := s.InsertActivity(context.Background(), store.ActivityEntry{UserID: "u1"}); err == nil {
		t.Error("InsertActivity() without type should fail")
	}
}

func TestPatch_Apply(t *testing.T) {
	done := true
	when := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := store.ProgressRecord{ModuleID: "dp-b-1"}
	store.Patch{}.Apply(&rec)
	if rec.Completed || rec.CompletionDate != nil {
		t.Errorf("empty patch changed record: %+v", rec)
	}

	store.Patch{Completed: &done, CompletionDate: &when}.Apply(&rec)
	if !rec.Completed || rec.CompletionDate == nil || !rec.CompletionDate.Equal(when) {
		t.Errorf("patch not applied: %+v", rec)
	}

	undone := false
	store.Patch{Completed: &undone}.Apply(&rec)
	if rec.Completed {
		t.Error("Completed should be false after patch")
	}
	if rec.CompletionDate == nil {
		t.Error("CompletionDate should be kept when patch omits it")
	}
}

func TestProgressKey_CacheKey(t *testing.T) {
	k := store.ProgressKey{UserID: "u1", CurriculumID: "devops", LevelID: "basic", ModuleID: "dp-b-1"}
	if got := k.CacheKey(); got != "devops-basic-dp-b-1" {
		t.Errorf("CacheKey() = %q, want devops-basic-dp-b-1", got)
	}
}

// runStoreSuite exercises behavior shared by every Store implementation.
func runStoreSuite(t *testing.T, s store.Store) {
	t.Run("progress upsert merges", func(t *testing.T) {
		ctx := context.Background()
		k := key("suite-u1", "dp-b-1")

		if rec, err := s.GetProgress(ctx, k); err != nil || rec != nil {
			t.Fatalf("GetProgress(missing) = %+v, %v; want nil, nil", rec, err)
		}

		rec, err := s.UpsertProgress(ctx, k, store.Patch{})
		if err != nil {
			t.Fatalf("UpsertProgress() error = %v", err)
		}
		if rec.Completed || rec.ID == "" {
			t.Errorf("new record = %+v, want incomplete with id", rec)
		}

		done := true
		when := time.Now().UTC().Truncate(time.Millisecond)
		rec, err = s.UpsertProgress(ctx, k, store.Patch{Completed: &done, CompletionDate: &when})
		if err != nil {
			t.Fatalf("UpsertProgress(complete) error = %v", err)
		}
		if !rec.Completed || rec.CompletionDate == nil || !rec.CompletionDate.Equal(when) {
			t.Errorf("completed record = %+v", rec)
		}

		rec, err = s.UpsertProgress(ctx, k, store.Patch{})
		if err != nil {
			t.Fatalf("UpsertProgress(empty) error = %v", err)
		}
		if !rec.Completed {
			t.Error("empty patch should keep completed = true")
		}

		got, err := s.GetProgress(ctx, k)
		if err != nil || got == nil {
			t.Fatalf("GetProgress() = %+v, %v", got, err)
		}
		if !got.Completed || got.Key() != k {
			t.Errorf("GetProgress() = %+v", got)
		}
	})

	t.Run("progress listing", func(t *testing.T) {
		ctx := context.Background()
		user := "suite-u2"

		for _, m := range []string{"dp-b-1", "dp-b-2", "dp-b-1"} {
			if _, err := s.UpsertProgress(ctx, key(user, m), store.Patch{}); err != nil {
				t.Fatalf("UpsertProgress(%s) error = %v", m, err)
			}
			time.Sleep(2 * time.Millisecond)
		}
		if _, err := s.UpsertProgress(ctx, store.ProgressKey{UserID: user, CurriculumID: "spbe", LevelID: "basic", ModuleID: "sb-b-1"}, store.Patch{}); err != nil {
			t.Fatalf("UpsertProgress(spbe) error = %v", err)
		}

		all, err := s.ListProgress(ctx, user, store.ProgressFilter{})
		if err != nil {
			t.Fatalf("ListProgress() error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("ListProgress() = %d records, want 3", len(all))
		}
		if all[0].ModuleID != "sb-b-1" || all[1].ModuleID != "dp-b-1" || all[2].ModuleID != "dp-b-2" {
			t.Errorf("order = %s, %s, %s; want sb-b-1, dp-b-1, dp-b-2", all[0].ModuleID, all[1].ModuleID, all[2].ModuleID)
		}

		devops, err := s.ListProgress(ctx, user, store.ProgressFilter{CurriculumID: "devops", LevelID: "basic"})
		if err != nil {
			t.Fatalf("ListProgress(filter) error = %v", err)
		}
		if len(devops) != 2 {
			t.Errorf("ListProgress(devops/basic) = %d, want 2", len(devops))
		}

		other, _ := s.ListProgress(ctx, "nobody", store.ProgressFilter{})
		if len(other) != 0 {
			t.Errorf("ListProgress(other user) = %d, want 0", len(other))
		}
	})

	t.Run("quiz results append", func(t *testing.T) {
		ctx := context.Background()
		user := "suite-u3"

		for _, score := range []int{50, 90} {
			r, err := s.InsertQuizResult(ctx, store.QuizResult{
				UserID:         user,
				ModuleID:       "dp-b-1",
				Score:          score,
				TotalQuestions: 2,
				CorrectAnswers: score / 50,
				Answers:        []int{0, 1},
			})
			if err != nil {
				t.Fatalf("InsertQuizResult(%d) error = %v", score, err)
			}
			if r.ID == "" || r.CompletionDate.IsZero() {
				t.Errorf("inserted result = %+v, want id and completion date", r)
			}
			time.Sleep(2 * time.Millisecond)
		}
		if _, err := s.InsertQuizResult(ctx, store.QuizResult{UserID: user, ModuleID: "dp-b-2", Score: 100, TotalQuestions: 1, CorrectAnswers: 1}); err != nil {
			t.Fatalf("InsertQuizResult(dp-b-2) error = %v", err)
		}

		results, err := s.ListQuizResults(ctx, user, "dp-b-1")
		if err != nil {
			t.Fatalf("ListQuizResults() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("ListQuizResults(dp-b-1) = %d, want 2", len(results))
		}
		if results[0].Score != 90 || results[1].Score != 50 {
			t.Errorf("scores = %d, %d; want 90, 50 (newest first)", results[0].Score, results[1].Score)
		}
		if len(results[0].Answers) != 2 {
			t.Errorf("answers = %v, want 2 entries", results[0].Answers)
		}

		all, _ := s.ListQuizResults(ctx, user, "")
		if len(all) != 3 {
			t.Errorf("ListQuizResults(all) = %d, want 3", len(all))
		}
	})

	t.Run("certificates", func(t *testing.T) {
		ctx := context.Background()
		user := "suite-u4"
		completed := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)

		cert, err := s.InsertCertificate(ctx, store.Certificate{
			UserID:           user,
			CurriculumID:     "devops",
			LevelID:          "basic",
			CertificateType:  "completion",
			VerificationCode: "SPBE-TEST-" + user,
			Snapshot: store.CertificateSnapshot{
				UserName:          "Demo User",
				NIP:               "123456789",
				Jabatan:           "Pranata Komputer",
				UnitKerja:         "Diskominfo Aceh Tengah",
				CurriculumName:    "DevOps Engineer (Fokus Database SPBE)",
				LevelName:         "Basic (Operator)",
				CertificateTitle:  "DevOps Engineer - Basic (Operator)",
				CompletionDate:    completed,
				CertificateNumber: "CERT-1-ABCDEFGHI",
			},
		})
		if err != nil {
			t.Fatalf("InsertCertificate() error = %v", err)
		}
		if cert.ID == "" || cert.IssuedAt.IsZero() {
			t.Errorf("inserted certificate = %+v", cert)
		}

		_, err = s.InsertCertificate(ctx, store.Certificate{UserID: user, CurriculumID: "devops", LevelID: "basic", CertificateType: "completion", VerificationCode: cert.VerificationCode})
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("duplicate code error = %v, want ErrConflict", err)
		}

		found, err := s.CertificateByCode(ctx, cert.VerificationCode)
		if err != nil || found == nil {
			t.Fatalf("CertificateByCode() = %+v, %v", found, err)
		}
		if found.Snapshot.UserName != "Demo User" || found.Snapshot.CertificateNumber != "CERT-1-ABCDEFGHI" {
			t.Errorf("snapshot = %+v", found.Snapshot)
		}
		if !found.Snapshot.CompletionDate.Equal(completed) {
			t.Errorf("CompletionDate = %v, want %v", found.Snapshot.CompletionDate, completed)
		}

		missing, err := s.CertificateByCode(ctx, "SPBE-UNKNOWN")
		if err != nil || missing != nil {
			t.Errorf("CertificateByCode(unknown) = %+v, %v; want nil, nil", missing, err)
		}

		certs, err := s.ListCertificates(ctx, user)
		if err != nil || len(certs) != 1 {
			t.Errorf("ListCertificates() = %d, %v; want 1", len(certs), err)
		}
	})

	t.Run("activities newest first", func(t *testing.T) {
		ctx := context.Background()
		user := "suite-u5"

		for i := 1; i <= 3; i++ {
			if _, err := s.InsertActivity(ctx, store.ActivityEntry{
				UserID:      user,
				Type:        "QUIZ_COMPLETED",
				Description: fmt.Sprintf("entry %d", i),
				Metadata:    map[string]any{"score": 80},
			}); err != nil {
				t.Fatalf("InsertActivity() error = %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}

		entries, err := s.ListActivities(ctx, user, 2)
		if err != nil {
			t.Fatalf("ListActivities() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("ListActivities(limit 2) = %d", len(entries))
		}
		if entries[0].Description != "entry 3" || entries[1].Description != "entry 2" {
			t.Errorf("order = %q, %q", entries[0].Description, entries[1].Description)
		}
		if entries[0].Metadata["score"] == nil {
			t.Errorf("metadata = %v, want score", entries[0].Metadata)
		}
	})

	t.Run("video progress", func(t *testing.T) {
		ctx := context.Background()
		user := "suite-u6"

		if v, err := s.GetVideoProgress(ctx, user, "dp-b-1", 0); err != nil || v != nil {
			t.Fatalf("GetVideoProgress(missing) = %+v, %v", v, err)
		}

		if _, err := s.UpsertVideoProgress(ctx, store.VideoProgress{UserID: user, ModuleID: "dp-b-1", VideoIndex: 0, PositionSeconds: 30, ProgressPercent: 25}); err != nil {
			t.Fatalf("UpsertVideoProgress() error = %v", err)
		}

		done := time.Now().UTC().Truncate(time.Millisecond)
		if _, err := s.UpsertVideoProgress(ctx, store.VideoProgress{UserID: user, ModuleID: "dp-b-1", VideoIndex: 0, PositionSeconds: 120, ProgressPercent: 100, CompletedAt: &done}); err != nil {
			t.Fatalf("UpsertVideoProgress(complete) error = %v", err)
		}

		// A later position update must not clear the completion.
		if _, err := s.UpsertVideoProgress(ctx, store.VideoProgress{UserID: user, ModuleID: "dp-b-1", VideoIndex: 0, PositionSeconds: 10, ProgressPercent: 8}); err != nil {
			t.Fatalf("UpsertVideoProgress(rewatch) error = %v", err)
		}

		v, err := s.GetVideoProgress(ctx, user, "dp-b-1", 0)
		if err != nil || v == nil {
			t.Fatalf("GetVideoProgress() = %+v, %v", v, err)
		}
		if v.PositionSeconds != 10 {
			t.Errorf("PositionSeconds = %v, want 10", v.PositionSeconds)
		}
		if v.CompletedAt == nil || !v.CompletedAt.Equal(done) {
			t.Errorf("CompletedAt = %v, want %v", v.CompletedAt, done)
		}
	})
}

func key(user, module string) store.ProgressKey {
	return store.ProgressKey{UserID: user, CurriculumID: "devops", LevelID: "basic", ModuleID: module}
}
