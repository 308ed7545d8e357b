package handlers

import (
	"net/http"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/services"
)

type ChatbotHandler struct {
	svc   services.ChatbotService
	debug bool
}

func NewChatbotHandler(svc services.ChatbotService, debug bool) *ChatbotHandler {
	return &ChatbotHandler{svc: svc, debug: debug}
}

func (h *ChatbotHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req types.ChatbotMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	reply, err := h.svc.Reply(r.Context(), mustUser(r).ID, req.Message)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatbotResponse{Success: true, Response: reply.Response, Source: reply.Source})
}

func (h *ChatbotHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context(), mustUser(r).ID); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeMessage(w, http.StatusOK, "Conversation cleared")
}
