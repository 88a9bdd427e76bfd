package rest

import (
	"net/http"

	"github.com/devcamper/catalog/internal/catalog"
)

// TokenResponse is returned by register, login and password changes.
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req catalog.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: session.Token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req catalog.LoginInput
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: session.Token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), actor(r).ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

// handleUpdateDetails lets a user change their own name and email.
func (h *Handler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req catalog.UserUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	req.Role = nil
	a := actor(r)
	user, err := h.users.Update(r.Context(), a, a.ID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req catalog.PasswordChange
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.ChangePassword(r.Context(), actor(r).ID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: session.Token})
}
