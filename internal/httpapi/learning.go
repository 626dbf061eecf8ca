package httpapi

import (
	"fmt"
	"net/http"

	"github.com/spbe-academy/devops-academy/internal/academy"
	"github.com/spbe-academy/devops-academy/internal/curriculum"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/progress"
	"github.com/spbe-academy/devops-academy/internal/store"
)

type quizAnswers struct {
	Answers []int `json:"answers"`
}

type quizOutcome struct {
	Result store.QuizResult `json:"result"`
	Passed bool             `json:"passed"`
}

type activityRequest struct {
	Type        string         `json:"activity_type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *Handler) handleCurricula(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.app.Catalog().Curricula())
}

func (h *Handler) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("curriculum")
	c, ok := h.app.Catalog().GetCurriculum(id)
	if !ok {
		respondError(w, r, fmt.Errorf("curriculum %q: %w", id, apperr.ErrNotFound))
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) handleAllProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	records, err := s.Progress.AllProgress(r.Context())
	reply(w, r, records, err)
}

func (h *Handler) handleCurriculumProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	records, err := s.Progress.CurriculumProgress(r.Context(), r.PathValue("curriculum"))
	reply(w, r, records, err)
}

func (h *Handler) handleLevelProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	records, err := s.Progress.LevelProgress(r.Context(), r.PathValue("curriculum"), r.PathValue("level"))
	reply(w, r, records, err)
}

// handleGetProgress answers null data for a module that was never touched.
func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	rec, err := s.Progress.GetProgress(r.Context(), r.PathValue("curriculum"), r.PathValue("level"), r.PathValue("module"))
	reply(w, r, rec, err)
}

func (h *Handler) handleRecordProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var patch store.Patch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.Progress.RecordProgress(r.Context(), r.PathValue("curriculum"), r.PathValue("level"), r.PathValue("module"), patch)
	reply(w, r, rec, err)
}

func (h *Handler) handleMarkComplete(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	rec, err := s.Progress.MarkComplete(r.Context(), r.PathValue("curriculum"), r.PathValue("level"), r.PathValue("module"))
	reply(w, r, rec, err)
}

func (h *Handler) handleRefreshProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	records, err := s.Progress.Refresh(r.Context())
	reply(w, r, records, err)
}

func (h *Handler) handleOverallStats(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	stats, err := s.Progress.OverallStats(r.Context())
	reply(w, r, stats, err)
}

func (h *Handler) handleCurriculumStats(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	stats, err := s.Progress.CurriculumStats(r.Context(), r.PathValue("curriculum"))
	reply(w, r, stats, err)
}

func (h *Handler) handleLevelStats(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	stats, err := s.Progress.LevelStats(r.Context(), r.PathValue("curriculum"))
	reply(w, r, stats, err)
}

func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	recs, err := s.Progress.Recommendations(r.Context(), limit)
	reply(w, r, recs, err)
}

// handleSubmitQuiz grades raw answers against the catalog and saves the attempt.
func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var req quizAnswers
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	moduleID := r.PathValue("module")
	sub, err := s.Progress.GradeQuiz(moduleID, req.Answers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.saveQuiz(w, r, s, moduleID, sub)
}

// handleSaveQuizResult saves an attempt graded by the client.
func (h *Handler) handleSaveQuizResult(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var sub progress.Submission
	if err := decodeJSON(r, &sub); err != nil {
		respondError(w, r, err)
		return
	}
	h.saveQuiz(w, r, s, r.PathValue("module"), sub)
}

func (h *Handler) saveQuiz(w http.ResponseWriter, r *http.Request, s *academy.Session, moduleID string, sub progress.Submission) {
	res, err := s.Progress.SaveQuizResult(r.Context(), moduleID, sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, quizOutcome{Result: res, Passed: res.Score >= curriculum.PassingScore})
}

func (h *Handler) handleQuizResults(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	results, err := s.Progress.QuizResults(r.Context(), r.URL.Query().Get("module"))
	reply(w, r, results, err)
}

func (h *Handler) handleVideoProgress(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, r, err)
		return
	}
	vp, err := s.Progress.VideoProgress(r.Context(), r.PathValue("module"), index)
	reply(w, r, vp, err)
}

func (h *Handler) handleTrackVideo(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var p progress.Playback
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, err)
		return
	}
	p.VideoIndex = index
	vp, err := s.Progress.TrackVideo(r.Context(), r.PathValue("module"), p)
	reply(w, r, vp, err)
}

func (h *Handler) handleCompleteVideo(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, r, err)
		return
	}
	vp, err := s.Progress.MarkVideoCompleted(r.Context(), r.PathValue("module"), index)
	reply(w, r, vp, err)
}

func (h *Handler) handleActivities(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := s.Progress.Activities(r.Context(), limit)
	reply(w, r, entries, err)
}

func (h *Handler) handleTrackActivity(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.Progress.TrackActivity(r.Context(), req.Type, req.Description, req.Metadata); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, nil)
}

// reply writes data with 200, or the error.
func reply(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, data)
}
