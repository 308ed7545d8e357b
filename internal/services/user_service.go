package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

type UserService interface {
	MyCompetitions(ctx context.Context, userID uuid.UUID) ([]MyCompetition, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	List(ctx context.Context, role, search string) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MyCompetition is a competition decorated with the caller's registration.
type MyCompetition struct {
	models.Competition
	RegistrationStatus models.RegistrationStatus `json:"registrationStatus"`
	RegisteredAt       time.Time                 `json:"registeredAt"`
}

type ProfileInput struct {
	Name   *string
	Avatar *string
}

type userService struct {
	users        repository.UserRepository
	competitions repository.CompetitionRepository
	bcryptCost   int
}

func NewUserService(users repository.UserRepository, competitions repository.CompetitionRepository, bcryptCost int) UserService {
	return &userService{users: users, competitions: competitions, bcryptCost: bcryptCost}
}

func (s *userService) MyCompetitions(ctx context.Context, userID uuid.UUID) ([]MyCompetition, error) {
	regs, err := s.competitions.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MyCompetition, 0, len(regs))
	for _, r := range regs {
		// Preload runs as a second query, so a competition deleted in between comes back nil
		if r.Competition == nil {
			continue
		}
		out = append(out, MyCompetition{
			Competition:        *r.Competition,
			RegistrationStatus: r.Status,
			RegisteredAt:       r.RegisteredAt,
		})
	}
	return out, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Avatar != nil {
		fields["avatar"] = *in.Avatar
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	var u models.User
	if err := s.users.GetByID(ctx, userID, &u); err != nil {
		return err
	}
	if !u.HasPassword() {
		return appErr.New(appErr.CodeInvalid, "OAuth users cannot change password")
	}
	if !auth.CheckPassword(*u.PasswordHash, current) {
		return appErr.New(appErr.CodeUnauthorized, "Current password is incorrect")
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	logger.L().Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) List(ctx context.Context, role, search string) ([]models.User, error) {
	f := repository.UserFilter{Search: strings.TrimSpace(search)}
	if role != "" {
		r := models.Role(role)
		if !r.Valid() {
			return nil, appErr.New(appErr.CodeInvalid, "Invalid role")
		}
		f.Role = r
	}
	return s.users.List(ctx, f)
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.users.GetWithCompetitions(ctx, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userService) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	r := models.Role(role)
	if !r.Valid() {
		return nil, appErr.New(appErr.CodeInvalid, "Invalid role")
	}
	if err := s.users.UpdateFields(ctx, id, map[string]any{"role": string(r)}); err != nil {
		return nil, err
	}
	logger.L().Info("user role updated", zap.String("user_id", id.String()), zap.String("role", role))
	return s.Get(ctx, id)
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}
