package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxMessageLength    = 5000
)

type ChatService interface {
	History(ctx context.Context, room string, page, limit int) (*ChatHistory, error)
	Rooms(ctx context.Context) ([]repository.RoomSummary, error)
	SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error)
	MarkRoomRead(ctx context.Context, room string, readerID uuid.UUID) (int64, error)
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) error
}

type ChatHistory struct {
	Messages    []models.Message
	Total       int64
	TotalPages  int
	CurrentPage int
}

type SendMessageInput struct {
	SenderID   uuid.UUID
	RoomID     string
	Content    string
	ReceiverID *uuid.UUID
}

type chatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository) ChatService {
	return &chatService{messages: messages, users: users}
}

func (s *chatService) History(ctx context.Context, room string, page, limit int) (*ChatHistory, error) {
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	page, limit = normalizePage(page, limit)

	msgs, total, err := s.messages.ListByRoom(ctx, room, page, limit)
	if err != nil {
		return nil, err
	}
	return &ChatHistory{
		Messages:    msgs,
		Total:       total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *chatService) Rooms(ctx context.Context) ([]repository.RoomSummary, error) {
	return s.messages.Rooms(ctx)
}

// SendMessage persists a message and returns it with sender and receiver profiles loaded.
func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	room := strings.TrimSpace(in.RoomID)
	content := strings.TrimSpace(in.Content)
	if room == "" {
		return nil, appErr.New(appErr.CodeInvalid, "Room ID is required")
	}
	if content == "" {
		return nil, appErr.New(appErr.CodeInvalid, "Message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, appErr.New(appErr.CodeInvalid, "Message is too long")
	}

	m := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		ChatRoom:   room,
		Content:    content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}

	var full models.Message
	if err := s.messages.GetWithParticipants(ctx, m.ID, &full); err != nil {
		return nil, err
	}
	return &full, nil
}

func (s *chatService) MarkRoomRead(ctx context.Context, room string, readerID uuid.UUID) (int64, error) {
	if strings.TrimSpace(room) == "" {
		return 0, appErr.New(appErr.CodeInvalid, "Room ID is required")
	}
	return s.messages.MarkRoomRead(ctx, room, readerID)
}

func (s *chatService) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	return s.users.SetOnline(ctx, userID, online)
}
