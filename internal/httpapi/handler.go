// Package httpapi exposes the academy over a JSON HTTP API. Every response
// is an envelope: {"success":true,"data":...} or
// {"success":false,"error":{"code":...,"message":...}}.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/spbe-academy/devops-academy/internal/academy"
	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
)

// Handler routes API requests to the academy.
type Handler struct {
	app *academy.App
	mux *http.ServeMux
}

// New creates the API handler with health, metrics and /api routes.
func New(app *academy.App) *Handler {
	h := &Handler{app: app, mux: http.NewServeMux()}
	h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	m := h.mux

	m.HandleFunc("GET /healthz", handleHealthz)
	m.HandleFunc("GET /readyz", h.handleReadyz)
	m.Handle("GET /metrics", metrics.Handler())

	// Public.
	m.HandleFunc("GET /api/curricula", h.handleCurricula)
	m.HandleFunc("GET /api/curricula/{curriculum}", h.handleCurriculum)
	m.HandleFunc("GET /api/verify/{code}", h.handleVerify)
	m.HandleFunc("POST /api/auth/signup", h.handleSignUp)
	m.HandleFunc("POST /api/auth/signin", h.handleSignIn)
	m.HandleFunc("POST /api/auth/reset-password", h.handleResetPassword)
	m.HandleFunc("POST /api/auth/reset-password/confirm", h.handleConfirmReset)

	// Session.
	m.HandleFunc("POST /api/auth/signout", h.handleSignOut)
	m.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	m.HandleFunc("GET /api/me", h.authed(h.handleMe))
	m.HandleFunc("PATCH /api/me", h.authed(h.handleUpdateProfile))

	m.HandleFunc("GET /api/progress", h.authed(h.handleAllProgress))
	m.HandleFunc("GET /api/progress/{curriculum}", h.authed(h.handleCurriculumProgress))
	m.HandleFunc("GET /api/progress/{curriculum}/{level}", h.authed(h.handleLevelProgress))
	m.HandleFunc("GET /api/progress/{curriculum}/{level}/{module}", h.authed(h.handleGetProgress))
	m.HandleFunc("PUT /api/progress/{curriculum}/{level}/{module}", h.authed(h.handleRecordProgress))
	m.HandleFunc("POST /api/progress/{curriculum}/{level}/{module}/complete", h.authed(h.handleMarkComplete))
	m.HandleFunc("POST /api/progress/refresh", h.authed(h.handleRefreshProgress))

	m.HandleFunc("GET /api/stats", h.authed(h.handleOverallStats))
	m.HandleFunc("GET /api/stats/{curriculum}", h.authed(h.handleCurriculumStats))
	m.HandleFunc("GET /api/stats/{curriculum}/levels", h.authed(h.handleLevelStats))
	m.HandleFunc("GET /api/recommendations", h.authed(h.handleRecommendations))

	m.HandleFunc("POST /api/quizzes/{module}/submit", h.authed(h.handleSubmitQuiz))
	m.HandleFunc("POST /api/quizzes/{module}/results", h.authed(h.handleSaveQuizResult))
	m.HandleFunc("GET /api/quizzes/results", h.authed(h.handleQuizResults))

	m.HandleFunc("GET /api/videos/{module}/{index}", h.authed(h.handleVideoProgress))
	m.HandleFunc("PUT /api/videos/{module}/{index}", h.authed(h.handleTrackVideo))
	m.HandleFunc("POST /api/videos/{module}/{index}/complete", h.authed(h.handleCompleteVideo))

	m.HandleFunc("GET /api/activities", h.authed(h.handleActivities))
	m.HandleFunc("POST /api/activities", h.authed(h.handleTrackActivity))

	m.HandleFunc("GET /api/certificates", h.authed(h.handleCertificates))
	m.HandleFunc("POST /api/certificates", h.authed(h.handleIssueCertificate))
	m.HandleFunc("GET /api/certificates/eligibility/{curriculum}/{level}", h.authed(h.handleEligibility))
	m.HandleFunc("GET /api/badges", h.authed(h.handleBadges))
	m.HandleFunc("POST /api/badges/check", h.authed(h.handleCheckBadges))

	m.HandleFunc("GET /api/export.xlsx", h.authed(h.handleExport))
	m.HandleFunc("GET /api/events", h.authed(h.handleEvents))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *academy.Session)

// authed resolves the bearer token to a session before calling next.
func (h *Handler) authed(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.app.Lookup(r.Context(), bearerToken(r))
		if err != nil {
			respondError(w, r, err)
			return
		}
		next(w, r, s)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.app.HealthCheck(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","mode":"` + h.app.Mode() + `"}`))
}

// queryInt reads a non-negative integer query parameter, 0 when absent.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.NewValidation(name, "non-negative integer")
	}
	return n, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, apperr.NewValidation(name, "integer")
	}
	return n, nil
}
