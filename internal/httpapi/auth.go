package httpapi

import (
	"net/http"

	"github.com/spbe-academy/devops-academy/internal/academy"
	"github.com/spbe-academy/devops-academy/internal/identity"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req identity.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	u, err := h.app.SignUp(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	_, auth, err := h.app.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, auth)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.app.SignOut(r.Context(), bearerToken(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	auth, err := h.app.RefreshToken(r.Context(), bearerToken(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, auth)
}

// handleResetPassword answers 202 for unknown emails too.
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.ResetPassword(r.Context(), req.Email); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusAccepted, nil)
}

func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	u, err := s.Identity.Profile(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request, s *academy.Session) {
	var update identity.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, r, err)
		return
	}
	u, err := s.Identity.UpdateProfile(r.Context(), update)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, u)
}
