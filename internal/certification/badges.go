package certification

import (
	"context"
	"log/slog"
	"time"

	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store"
)

// EarnedBadge is a catalog badge with the learner's award state.
type EarnedBadge struct {
	curriculum.Badge
	Earned           bool       `json:"earned"`
	IssuedAt         *time.Time `json:"issued_at,omitempty"`
	VerificationCode string     `json:"verification_code,omitempty"`
}

// Badges lists every badge in catalog order with the learner's award state.
func (e *Engine) Badges(ctx context.Context) ([]EarnedBadge, error) {
	certs, err := e.UserCertificates(ctx)
	if err != nil {
		return nil, err
	}
	issued := byBadge(certs)

	badges := e.catalog.Badges()
	out := make([]EarnedBadge, 0, len(badges))
	for _, b := range badges {
		eb := EarnedBadge{Badge: b}
		if c, ok := issued[b.ID]; ok {
			at := c.IssuedAt
			eb.Earned = true
			eb.IssuedAt = &at
			eb.VerificationCode = c.VerificationCode
		}
		out = append(out, eb)
	}
	return out, nil
}

// CheckBadges issues a certificate for every level the learner has become
// eligible for and holds no certificate yet. It returns only the new ones.
func (e *Engine) CheckBadges(ctx context.Context) ([]store.Certificate, error) {
	e.earnMu.Lock()
	defer e.earnMu.Unlock()

	certs, err := e.UserCertificates(ctx)
	if err != nil {
		return nil, err
	}
	issued := byBadge(certs)

	minted := []store.Certificate{}
	for _, b := range e.catalog.Badges() {
		if _, ok := issued[b.ID]; ok {
			continue
		}
		el, err := e.CheckEligibility(ctx, b.CurriculumID, b.LevelID)
		if err != nil {
			return minted, err
		}
		if !el.Eligible {
			continue
		}

		cert, err := e.IssueCertificate(ctx, b.CurriculumID, b.LevelID, TypeCompletion)
		if apperr.IsNotEligible(err) {
			continue
		}
		if err != nil {
			return minted, err
		}
		slog.Info("badge earned", "user_id", cert.UserID, "badge_id", b.ID)
		minted = append(minted, cert)
	}
	return minted, nil
}

// EarnCertificate returns the learner's certificate for the level, issuing
// one when none exists yet. created is false when an earlier certificate
// was found; IssueCertificate is not called then.
func (e *Engine) EarnCertificate(ctx context.Context, curriculumID, levelID, certType string) (cert store.Certificate, created bool, err error) {
	e.earnMu.Lock()
	defer e.earnMu.Unlock()

	certs, err := e.UserCertificates(ctx)
	if err != nil {
		return store.Certificate{}, false, err
	}
	if c, ok := byBadge(certs)[curriculum.BadgeID(curriculumID, levelID)]; ok {
		return c, false, nil
	}

	cert, err = e.IssueCertificate(ctx, curriculumID, levelID, certType)
	if err != nil {
		return store.Certificate{}, false, err
	}
	return cert, true, nil
}

// byBadge indexes certificates by badge ID, keeping the earliest per level.
func byBadge(certs []store.Certificate) map[string]store.Certificate {
	out := make(map[string]store.Certificate, len(certs))
	for _, c := range certs {
		id := curriculum.BadgeID(c.CurriculumID, c.LevelID)
		if prev, ok := out[id]; !ok || c.IssuedAt.Before(prev.IssuedAt) {
			out[id] = c
		}
	}
	return out
}
