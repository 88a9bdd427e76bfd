package rest

import (
	"net/http"
)

func (h *Handler) handleListBootcamps(w http.ResponseWriter, r *http.Request) {
	env, err := h.bootcamps.List(r.Context(), r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) handleGetBootcamp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.bootcamps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, doc)
}

func (h *Handler) handleCreateBootcamp(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	doc, err := h.bootcamps.Create(r.Context(), actor(r), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

func (h *Handler) handleUpdateBootcamp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	input, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	doc, err := h.bootcamps.Update(r.Context(), actor(r), id, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, doc)
}

func (h *Handler) handleDeleteBootcamp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.bootcamps.Delete(r.Context(), actor(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, struct{}{})
}
