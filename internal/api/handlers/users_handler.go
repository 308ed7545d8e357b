package handlers

import (
	"net/http"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/services"
)

type UsersHandler struct {
	svc   services.UserService
	debug bool
}

func NewUsersHandler(svc services.UserService, debug bool) *UsersHandler {
	return &UsersHandler{svc: svc, debug: debug}
}

func (h *UsersHandler) MyCompetitions(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.MyCompetitions(r.Context(), mustUser(r).ID)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if out == nil {
		out = []services.MyCompetition{}
	}
	writeJSON(w, http.StatusOK, types.MyCompetitionsResponse{Success: true, Count: len(out), Competitions: out})
}

func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req types.ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), mustUser(r).ID, services.ProfileInput{Name: req.Name, Avatar: req.Avatar})
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{Success: true, Message: "Profile updated successfully", User: u})
}

func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req types.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), mustUser(r).ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

// List handles GET /users?role&search for admins.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.svc.List(r.Context(), q.Get("role"), q.Get("search"))
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, types.UsersResponse{Success: true, Count: len(users), Users: users})
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{Success: true, User: u})
}

func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	var req types.RoleUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	u, err := h.svc.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{Success: true, Message: "User role updated successfully", User: u})
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
