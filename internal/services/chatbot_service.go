package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/chatbot"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

// Reply sources.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

const chatbotContextSize = 10

type ChatbotService interface {
	Reply(ctx context.Context, userID uuid.UUID, message string) (*ChatbotReply, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) error
}

type ChatbotReply struct {
	Response string
	Source   string
}

type chatbotService struct {
	assistant    chatbot.Assistant
	history      chatbot.HistoryStore
	competitions repository.CompetitionRepository
	categories   repository.CategoryRepository
}

// NewChatbotService builds the assistant use case. A nil assistant always uses the keyword responder.
func NewChatbotService(assistant chatbot.Assistant, history chatbot.HistoryStore, competitions repository.CompetitionRepository, categories repository.CategoryRepository) ChatbotService {
	return &chatbotService{
		assistant:    assistant,
		history:      history,
		competitions: competitions,
		categories:   categories,
	}
}

func (s *chatbotService) Reply(ctx context.Context, userID uuid.UUID, message string) (*ChatbotReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, appErr.New(appErr.CodeInvalid, "Message is required")
	}
	if s.assistant == nil {
		return s.fallback(message), nil
	}

	log := logger.L().With(zap.String("user_id", userID.String()))
	key := userID.String()

	history, err := s.history.Load(ctx, key)
	if err != nil {
		log.Warn("chatbot history unavailable", zap.Error(err))
		history = nil
	}

	text, err := s.assistant.Reply(ctx, s.instruction(ctx), history, message)
	if err != nil {
		log.Warn("assistant failed, using fallback", zap.Error(err))
		return s.fallback(message), nil
	}

	if err := s.history.Append(ctx, key,
		chatbot.Turn{Role: chatbot.RoleUser, Content: message},
		chatbot.Turn{Role: chatbot.RoleModel, Content: text},
	); err != nil {
		log.Warn("chatbot history not saved", zap.Error(err))
	}
	metrics.ChatbotReplies.WithLabelValues(SourceAI).Inc()
	return &ChatbotReply{Response: text, Source: SourceAI}, nil
}

func (s *chatbotService) fallback(message string) *ChatbotReply {
	metrics.ChatbotReplies.WithLabelValues(SourceFallback).Inc()
	return &ChatbotReply{Response: chatbot.Fallback(message), Source: SourceFallback}
}

func (s *chatbotService) instruction(ctx context.Context) string {
	active, err := s.competitions.ListActive(ctx, chatbotContextSize)
	if err != nil {
		return chatbot.InstructionWithoutData()
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return chatbot.InstructionWithoutData()
	}
	return chatbot.Instruction(active, cats)
}

func (s *chatbotService) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	return s.history.Clear(ctx, userID.String())
}
