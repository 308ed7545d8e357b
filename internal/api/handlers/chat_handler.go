package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/internal/services"
)

type ChatHandler struct {
	svc   services.ChatService
	debug bool
}

func NewChatHandler(svc services.ChatService, debug bool) *ChatHandler {
	return &ChatHandler{svc: svc, debug: debug}
}

// History handles GET /chat/{roomId}?page&limit. Any authenticated user may read any room.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "roomId")
	hist, err := h.svc.History(r.Context(), room, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	msgs := hist.Messages
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, types.ChatHistoryResponse{
		Success:     true,
		Messages:    msgs,
		TotalPages:  hist.TotalPages,
		CurrentPage: hist.CurrentPage,
		Total:       hist.Total,
	})
}

func (h *ChatHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.Rooms(r.Context())
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if rooms == nil {
		rooms = []repository.RoomSummary{}
	}
	writeJSON(w, http.StatusOK, types.ChatRoomsResponse{Success: true, Rooms: rooms})
}
