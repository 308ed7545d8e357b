package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	TypeRegistrationStatus = "registration:status"
	TypeDeactivateEnded    = "competition:deactivate-ended"

	// DeactivateSchedule is the cron spec for the ended-competition sweep.
	DeactivateSchedule = "@hourly"
)

// RegistrationStatusPayload is the task payload for registration status notifications.
type RegistrationStatusPayload struct {
	UserID        string `json:"user_id"`
	CompetitionID string `json:"competition_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
}

func NewRegistrationStatusTask(p RegistrationStatusPayload) (*asynq.Task, error) {
	pb, err := json.Marshal(p)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal task payload failed")
	}
	return asynq.NewTask(TypeRegistrationStatus, pb, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

func NewDeactivateEndedTask() *asynq.Task {
	return asynq.NewTask(TypeDeactivateEnded, nil, asynq.MaxRetry(1), asynq.Timeout(2*time.Minute))
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier hands registration status changes to the worker.
type Notifier struct {
	client Enqueuer
}

func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) RegistrationStatusChanged(ctx context.Context, userID, competitionID uuid.UUID, title string, status models.RegistrationStatus) error {
	task, err := NewRegistrationStatusTask(RegistrationStatusPayload{
		UserID:        userID.String(),
		CompetitionID: competitionID.String(),
		Title:         title,
		Status:        string(status),
	})
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue registration status failed")
	}
	logger.L().Debug("registration status enqueued", zap.String("task_id", info.ID), zap.String("user_id", userID.String()))
	return nil
}

// Scheduler is satisfied by *asynq.Scheduler.
type Scheduler interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedules adds the periodic tasks to s. The ended-competition sweep is
// opt-in because is_active is otherwise only changed by admins.
func RegisterSchedules(s Scheduler, deactivateEnded bool) error {
	if !deactivateEnded {
		return nil
	}
	if _, err := s.Register(DeactivateSchedule, NewDeactivateEndedTask()); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "register deactivate schedule failed")
	}
	return nil
}
