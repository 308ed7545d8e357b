package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/realtime"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

// Pusher delivers an event to a connected user. *realtime.Notifier implements it.
type Pusher interface {
	RegistrationStatus(ctx context.Context, userID uuid.UUID, p realtime.RegistrationStatusPayload) error
}

// Deactivator is the slice of the competition service the sweep needs.
type Deactivator interface {
	DeactivateEnded(ctx context.Context) (int64, error)
}

// Handler runs the worker's tasks.
type Handler struct {
	pusher       Pusher
	competitions Deactivator
}

func NewHandler(pusher Pusher, competitions Deactivator) *Handler {
	return &Handler{pusher: pusher, competitions: competitions}
}

// Register mounts every task type on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRegistrationStatus, h.HandleRegistrationStatus)
	mux.HandleFunc(TypeDeactivateEnded, h.HandleDeactivateEnded)
}

func (h *Handler) HandleRegistrationStatus(ctx context.Context, t *asynq.Task) error {
	var p RegistrationStatusPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid registration status payload", zap.Error(err))
		record(TypeRegistrationStatus, "invalid")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		logger.L().Error("invalid user id in task", zap.String("user_id", p.UserID))
		record(TypeRegistrationStatus, "invalid")
		return fmt.Errorf("parse user id: %v: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("pushing registration status",
		zap.String("user_id", p.UserID),
		zap.String("competition_id", p.CompetitionID),
		zap.String("status", p.Status))

	err = h.pusher.RegistrationStatus(ctx, userID, realtime.RegistrationStatusPayload{
		CompetitionID: p.CompetitionID,
		Title:         p.Title,
		Status:        p.Status,
	})
	if err != nil {
		logger.L().Error("push registration status failed", zap.Error(err))
		record(TypeRegistrationStatus, "error")
		return err
	}
	record(TypeRegistrationStatus, "ok")
	return nil
}

func (h *Handler) HandleDeactivateEnded(ctx context.Context, _ *asynq.Task) error {
	n, err := h.competitions.DeactivateEnded(ctx)
	if err != nil {
		logger.L().Error("deactivate ended competitions failed", zap.Error(err))
		record(TypeDeactivateEnded, "error")
		return err
	}
	logger.L().Info("deactivated ended competitions", zap.Int64("count", n))
	record(TypeDeactivateEnded, "ok")
	return nil
}

func record(taskType, result string) {
	metrics.TasksProcessed.WithLabelValues(taskType, result).Inc()
}
