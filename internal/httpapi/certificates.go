package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spbe-academy/devops-academy/internal/academy"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/report"
	"github.com/spbe-academy/devops-academy/internal/store"
)

type issueRequest struct {
	CurriculumID    string `json:"curriculum_id"`
	LevelID         string `json:"level_id"`
	CertificateType string `json:"certificate_type"`
}

func (h *Handler) handleCertificates(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	certs, err := s.Certificates.UserCertificates(r.Context())
	reply(w, r, certs, err)
}

// handleIssueCertificate answers 201 with a new certificate, or 200 with the
// one already held for the level.
func (h *Handler) handleIssueCertificate(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	cert, created, err := s.Certificates.EarnCertificate(r.Context(), req.CurriculumID, req.LevelID, req.CertificateType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	respond(w, status, cert)
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	el, err := s.Certificates.CheckEligibility(r.Context(), r.PathValue("curriculum"), r.PathValue("level"))
	reply(w, r, el, err)
}

func (h *Handler) handleBadges(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	badges, err := s.Certificates.Badges(r.Context())
	reply(w, r, badges, err)
}

func (h *Handler) handleCheckBadges(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	minted, err := s.Certificates.CheckBadges(r.Context())
	if minted == nil {
		minted = []store.Certificate{}
	}
	reply(w, r, minted, err)
}

// handleVerify is public: anyone holding a code may check it.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, err := h.app.Verify(r.Context(), r.PathValue("code"))
	reply(w, r, v, err)
}

// handleExport streams the learner's progress report as an xlsx workbook.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	u := s.Identity.CurrentUser()
	if u == nil {
		respondError(w, r, apperr.ErrNotAuthenticated)
		return
	}
	data, err := report.Collect(r.Context(), *u, s.Progress, s.Certificates)
	if err != nil {
		respondError(w, r, err)
		return
	}

	name := fmt.Sprintf("progress-%s.xlsx", data.GeneratedAt.Format(time.DateOnly))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := report.Write(w, h.app.Catalog(), data); err != nil {
		// Headers are gone; the client sees a truncated file.
		slog.Error("writing report failed", "user_id", u.ID, "error", err)
	}
}
