package rest

import (
	"net/http"

	"github.com/devcamper/catalog/internal/catalog"
	"github.com/devcamper/catalog/pkg/model"
)

// WhoAmIResponse reports which kind of record an id names.
type WhoAmIResponse struct {
	Success bool           `json:"success"`
	WhoAmI  string         `json:"whoAmI"`
	Data    model.Document `json:"data"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	env, err := h.users.List(r.Context(), r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req catalog.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req catalog.UserUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.users.Update(r.Context(), actor(r), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, struct{}{})
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	found, err := h.users.WhoAmI(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WhoAmIResponse{Success: true, WhoAmI: found.Kind, Data: found.Data})
}
