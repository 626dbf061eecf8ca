// Package certification decides when a learner has finished a level and
// issues verifiable certificates for it.
package certification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/activity"
	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// TypeCompletion is the certificate type issued when none is given.
const TypeCompletion = "completion"

// Identity reports who is signed in to the session.
type Identity interface {
	CurrentUser() *store.User
}

// ProgressReader exposes the learner's progress and quiz attempts.
type ProgressReader interface {
	LevelProgress(ctx context.Context, curriculumID, levelID string) ([]store.ProgressRecord, error)
	QuizResults(ctx context.Context, moduleID string) ([]store.QuizResult, error)
}

// EngineConfig holds dependencies for the certification engine.
type EngineConfig struct {
	Catalog  *curriculum.Loader
	Store    store.CertificateStore
	Progress ProgressReader
	Identity Identity
	Activity activity.Logger  // default NopLogger
	Printer  *message.Printer // default Indonesian
	Now      func() time.Time // default time.Now
}

// Engine evaluates eligibility and mints certificates.
type Engine struct {
	catalog  *curriculum.Loader
	store    store.CertificateStore
	progress ProgressReader
	identity Identity
	activity activity.Logger
	printer  *message.Printer
	now      func() time.Time

	// earnMu serializes the check-then-issue of EarnCertificate and CheckBadges.
	earnMu sync.Mutex
}

// NewEngine creates a certification engine.
func NewEngine(cfg EngineConfig) *Engine {
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
	return &Engine{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		progress: cfg.Progress,
		identity: cfg.Identity,
		activity: logger,
		printer:  printer,
		now:      now,
	}
}

// Eligibility is the outcome of checking a level's requirements.
type Eligibility struct {
	Eligible  bool   `json:"eligible"`
	Reason    string `json:"reason,omitempty"`
	Completed int    `json:"completed_modules"`
	Passed    int    `json:"passed_quizzes"`
	Total     int    `json:"total_modules"`
}

// CheckEligibility reports whether the learner completed every module of the
// level and passed each module's quiz. Any attempt scoring at least
// curriculum.PassingScore counts, even when a later retake scored lower.
func (e *Engine) CheckEligibility(ctx context.Context, curriculumID, levelID string) (Eligibility, error) {
	if e.identity.CurrentUser() == nil {
		return Eligibility{}, apperr.ErrNotAuthenticated
	}
	moduleIDs := e.catalog.ModuleIDs(curriculumID, levelID)
	if moduleIDs == nil {
		return Eligibility{}, apperr.NewValidation("level", e.printer.Sprintf(i18n.MsgInvalidLevel))
	}

	records, err := e.progress.LevelProgress(ctx, curriculumID, levelID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("checking eligibility: %w", err)
	}
	results, err := e.progress.QuizResults(ctx, "")
	if err != nil {
		return Eligibility{}, fmt.Errorf("checking eligibility: %w", err)
	}

	inLevel := make(map[string]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		inLevel[id] = true
	}
	completed := make(map[string]bool)
	for _, r := range records {
		if r.Completed && inLevel[r.ModuleID] {
			completed[r.ModuleID] = true
		}
	}
	passed := make(map[string]bool)
	for _, r := range results {
		if inLevel[r.ModuleID] && r.Score >= curriculum.PassingScore {
			passed[r.ModuleID] = true
		}
	}

	el := Eligibility{Completed: len(completed), Passed: len(passed), Total: len(moduleIDs)}
	switch {
	case el.Completed < el.Total:
		el.Reason = e.printer.Sprintf(i18n.MsgModulesIncomplete, el.Completed, el.Total)
	case el.Passed < el.Total:
		el.Reason = e.printer.Sprintf(i18n.MsgQuizzesNotPassed, el.Passed, el.Total)
	default:
		el.Eligible = true
	}
	return el, nil
}

// IssueCertificate mints a certificate for the level when the learner is
// eligible. It does not check for an earlier certificate; CheckBadges does.
func (e *Engine) IssueCertificate(ctx context.Context, curriculumID, levelID, certType string) (store.Certificate, error) {
	user := e.identity.CurrentUser()
	if user == nil {
		return store.Certificate{}, apperr.ErrNotAuthenticated
	}
	if certType == "" {
		certType = TypeCompletion
	}

	el, err := e.CheckEligibility(ctx, curriculumID, levelID)
	if err != nil {
		return store.Certificate{}, err
	}
	if !el.Eligible {
		return store.Certificate{}, &apperr.NotEligibleError{
			Reason:    el.Reason,
			Completed: el.Completed,
			Passed:    el.Passed,
			Total:     el.Total,
		}
	}

	c, _ := e.catalog.GetCurriculum(curriculumID)
	lv, _ := e.catalog.GetLevel(curriculumID, levelID)
	badge, _ := e.catalog.GetBadge(curriculumID, levelID)

	code, err := GenerateVerificationCode()
	if err != nil {
		return store.Certificate{}, err
	}
	number, err := generateCertificateNumber(e.now())
	if err != nil {
		return store.Certificate{}, err
	}

	now := e.now()
	cert, err := e.store.InsertCertificate(ctx, store.Certificate{
		UserID:           user.ID,
		CurriculumID:     curriculumID,
		LevelID:          levelID,
		CertificateType:  certType,
		VerificationCode: code,
		IssuedAt:         now,
		Snapshot: store.CertificateSnapshot{
			UserName:          displayName(*user),
			NIP:               user.NIP,
			Jabatan:           user.Jabatan,
			UnitKerja:         user.UnitKerja,
			CurriculumName:    c.Name,
			LevelName:         lv.Name,
			CertificateTitle:  badge.CertificateTitle,
			CompletionDate:    now,
			CertificateNumber: number,
		},
	})
	if err != nil {
		slog.Error("failed to store certificate", "user_id", user.ID, "curriculum_id", curriculumID, "level_id", levelID, "error", err)
		return store.Certificate{}, fmt.Errorf("issuing certificate: %w", err)
	}

	metrics.CertificatesIssued.WithLabelValues(curriculumID, levelID).Inc()
	slog.Info("certificate issued",
		"user_id", user.ID,
		"curriculum_id", curriculumID,
		"level_id", levelID,
		"verification_code", cert.VerificationCode,
	)

	err = e.activity.LogActivity(ctx, store.ActivityEntry{
		UserID:      user.ID,
		Type:        activity.TypeCertificateEarned,
		Description: e.printer.Sprintf(i18n.MsgCertificateEarned, badge.CertificateTitle),
		Metadata: map[string]any{
			"curriculum_id":     curriculumID,
			"level_id":          levelID,
			"certificate_type":  certType,
			"certificate_id":    cert.ID,
			"verification_code": cert.VerificationCode,
		},
		CreatedAt: now,
	})
	if err != nil {
		slog.Warn("failed to log activity", "user_id", user.ID, "activity_type", activity.TypeCertificateEarned, "error", err)
	}
	return cert, nil
}

// UserCertificates returns the learner's certificates, newest first.
func (e *Engine) UserCertificates(ctx context.Context) ([]store.Certificate, error) {
	user := e.identity.CurrentUser()
	if user == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	certs, err := e.store.ListCertificates(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing certificates: %w", err)
	}
	return certs, nil
}

// Summary is the public view of a certificate.
type Summary struct {
	ID               string                    `json:"id"`
	CurriculumID     string                    `json:"curriculum_id"`
	LevelID          string                    `json:"level_id"`
	CertificateType  string                    `json:"certificate_type"`
	VerificationCode string                    `json:"verification_code"`
	IssuedAt         time.Time                 `json:"issued_at"`
	Snapshot         store.CertificateSnapshot `json:"metadata"`
}

// Verification is the result of looking up a verification code.
type Verification struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason,omitempty"`
	Certificate *Summary `json:"certificate,omitempty"`
}

// VerifyByCode looks up a certificate by its public code. It needs no
// signed-in learner and exposes only the certificate's own snapshot.
func (e *Engine) VerifyByCode(ctx context.Context, code string) (Verification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	notFound := Verification{Reason: e.printer.Sprintf(i18n.MsgCertificateNotFound)}
	if code == "" {
		return notFound, nil
	}

	cert, err := e.store.CertificateByCode(ctx, code)
	if err != nil {
		return Verification{}, fmt.Errorf("verifying certificate: %w", err)
	}
	if cert == nil {
		return notFound, nil
	}
	return Verification{
		Valid: true,
		Certificate: &Summary{
			ID:               cert.ID,
			CurriculumID:     cert.CurriculumID,
			LevelID:          cert.LevelID,
			CertificateType:  cert.CertificateType,
			VerificationCode: cert.VerificationCode,
			IssuedAt:         cert.IssuedAt,
			Snapshot:         cert.Snapshot,
		},
	}, nil
}

func displayName(u store.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
