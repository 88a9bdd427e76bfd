package rest

import (
	"net/http"
)

// Courses and reviews share these handlers; c selects the collection.

func (h *Handler) handleListChildren(c child) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// unscoped on /courses and /reviews
		bootcampID := r.PathValue("bootcampId")
		if bootcampID != "" {
			if _, ok := pathID(w, r, "bootcampId"); !ok {
				return
			}
		}
		env, err := c.svc.List(r.Context(), bootcampID, r.URL.Query())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func (h *Handler) handleGetChild(c child) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		doc, err := c.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, doc)
	}
}

func (h *Handler) handleCreateChild(c child) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bootcampID, ok := pathID(w, r, "bootcampId")
		if !ok {
			return
		}
		input, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		doc, err := c.svc.Create(r.Context(), actor(r), bootcampID, input, c.hooks.Created)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, doc)
	}
}

func (h *Handler) handleUpdateChild(c child) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		input, ok := decodeDocument(w, r)
		if !ok {
			return
		}
		doc, err := c.svc.Update(r.Context(), actor(r), id, input, c.hooks.Updated)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, doc)
	}
}

func (h *Handler) handleDeleteChild(c child) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := c.svc.Delete(r.Context(), actor(r), id, c.hooks.Removed); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, struct{}{})
	}
}
