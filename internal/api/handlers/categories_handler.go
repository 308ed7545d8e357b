package handlers

import (
	"net/http"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/services"
)

type CategoriesHandler struct {
	svc   services.CategoryService
	debug bool
}

func NewCategoriesHandler(svc services.CategoryService, debug bool) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, debug: debug}
}

func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, types.CategoriesResponse{Success: true, Count: len(cats), Categories: cats})
}

func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.CategoryResponse{Success: true, Category: c})
}

func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	c, err := h.svc.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusCreated, types.CategoryResponse{Success: true, Message: "Category created successfully", Category: c})
}

func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	var req types.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	c, err := h.svc.Update(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.CategoryResponse{Success: true, Message: "Category updated successfully", Category: c})
}

func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeMessage(w, http.StatusOK, "Category deleted successfully")
}
