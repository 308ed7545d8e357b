package types

import (
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/internal/services"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"requestId,omitempty"`
}

type AuthResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user"`
}

type UsersResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Users   []models.User `json:"users"`
}

type TokenResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

type CompetitionListResponse struct {
	Success           bool                 `json:"success"`
	Competitions      []models.Competition `json:"competitions"`
	TotalPages        int                  `json:"totalPages"`
	CurrentPage       int                  `json:"currentPage"`
	TotalCompetitions int64                `json:"totalCompetitions"`
}

type CompetitionResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Competition *models.Competition `json:"competition"`
}

type RegistrationsResponse struct {
	Success       bool                 `json:"success"`
	Competition   string               `json:"competition"`
	TotalCount    int                  `json:"totalCount"`
	Registrations []models.Participant `json:"registrations"`
}

type ParticipantResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Participant *models.Participant `json:"participant"`
}

type MyCompetitionsResponse struct {
	Success      bool                     `json:"success"`
	Count        int                      `json:"count"`
	Competitions []services.MyCompetition `json:"competitions"`
}

type CategoriesResponse struct {
	Success    bool              `json:"success"`
	Count      int               `json:"count"`
	Categories []models.Category `json:"categories"`
}

type CategoryResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Category *models.Category `json:"category"`
}

type ChatHistoryResponse struct {
	Success     bool             `json:"success"`
	Messages    []models.Message `json:"messages"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int64            `json:"total"`
}

type ChatRoomsResponse struct {
	Success bool                     `json:"success"`
	Rooms   []repository.RoomSummary `json:"rooms"`
}

type ChatbotResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Source   string `json:"source"`
}
