package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultPage      = 1
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Notifier is told about registration status changes so the user can be pushed an update.
type Notifier interface {
	RegistrationStatusChanged(ctx context.Context, userID, competitionID uuid.UUID, title string, status models.RegistrationStatus) error
}

type CompetitionService interface {
	List(ctx context.Context, q CompetitionQuery) (*CompetitionPage, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Competition, error)
	Register(ctx context.Context, competitionID, userID uuid.UUID) (*models.Participant, error)
	Create(ctx context.Context, in CompetitionInput, createdBy uuid.UUID) (*models.Competition, error)
	Update(ctx context.Context, id uuid.UUID, in CompetitionPatch) (*models.Competition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Registrations(ctx context.Context, id uuid.UUID) ([]models.Participant, error)
	UpdateRegistrationStatus(ctx context.Context, competitionID, userID uuid.UUID, status models.RegistrationStatus) (*models.Participant, error)
	DeactivateEnded(ctx context.Context) (int64, error)
}

// CompetitionQuery is the public listing filter before defaults are applied.
type CompetitionQuery struct {
	Search     string
	CategoryID *uuid.UUID
	StartFrom  *time.Time
	StartTo    *time.Time
	Sort       string
	Page       int
	Limit      int
}

type CompetitionPage struct {
	Competitions []models.Competition
	Total        int64
	TotalPages   int
	CurrentPage  int
}

type CompetitionInput struct {
	Title                string
	Description          string
	CategoryID           uuid.UUID
	Rules                string
	Prizes               string
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline time.Time
	MaxParticipants      *int
}

// CompetitionPatch carries only the fields a client sent.
type CompetitionPatch struct {
	Title                *string
	Description          *string
	CategoryID           *uuid.UUID
	Rules                *string
	Prizes               *string
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	IsActive             *bool
}

type competitionService struct {
	competitions repository.CompetitionRepository
	categories   repository.CategoryRepository
	notifier     Notifier
	now          func() time.Time
}

// NewCompetitionService wires the competition use cases. notifier may be nil.
func NewCompetitionService(competitions repository.CompetitionRepository, categories repository.CategoryRepository, notifier Notifier) CompetitionService {
	return &competitionService{
		competitions: competitions,
		categories:   categories,
		notifier:     notifier,
		now:          time.Now,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (s *competitionService) List(ctx context.Context, q CompetitionQuery) (*CompetitionPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	sort := q.Sort
	switch sort {
	case repository.SortNewest, repository.SortPopular, repository.SortTrending:
	default:
		sort = repository.SortNewest
	}

	items, total, err := s.competitions.List(ctx, repository.CompetitionFilter{
		ActiveOnly: true,
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		StartFrom:  q.StartFrom,
		StartTo:    q.StartTo,
		Sort:       sort,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return &CompetitionPage{
		Competitions: items,
		Total:        total,
		TotalPages:   totalPages(total, limit),
		CurrentPage:  page,
	}, nil
}

func (s *competitionService) Get(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	var c models.Competition
	if err := s.competitions.GetDetailed(ctx, id, &c); err != nil {
		return nil, err
	}
	if err := s.competitions.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	c.Views++
	return &c, nil
}

func (s *competitionService) Register(ctx context.Context, competitionID, userID uuid.UUID) (*models.Participant, error) {
	p, err := s.competitions.Register(ctx, competitionID, userID, s.now())
	if err != nil {
		metrics.Registrations.WithLabelValues(registrationResult(err)).Inc()
		return nil, err
	}
	metrics.Registrations.WithLabelValues("ok").Inc()
	logger.L().Info("competition registration",
		zap.String("competition_id", competitionID.String()),
		zap.String("user_id", userID.String()))
	return p, nil
}

func registrationResult(err error) string {
	switch err {
	case models.ErrDeadlinePassed:
		return "deadline"
	case models.ErrCompetitionFull:
		return "full"
	case models.ErrAlreadyRegistered:
		return "duplicate"
	}
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return "not_found"
	}
	return "error"
}

func (s *competitionService) ensureCategory(ctx context.Context, id uuid.UUID) error {
	var cat models.Category
	if err := s.categories.GetByID(ctx, id, &cat); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return appErr.New(appErr.CodeInvalid, "Category does not exist")
		}
		return err
	}
	return nil
}

func (s *competitionService) Create(ctx context.Context, in CompetitionInput, createdBy uuid.UUID) (*models.Competition, error) {
	c := &models.Competition{
		Title:                strings.TrimSpace(in.Title),
		Description:          in.Description,
		CategoryID:           in.CategoryID,
		Rules:                in.Rules,
		Prizes:               in.Prizes,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxParticipants:      in.MaxParticipants,
		IsActive:             true,
		CreatedByID:          &createdBy,
	}
	if err := c.ValidateSchedule(); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if err := s.competitions.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.L().Info("competition created", zap.String("competition_id", c.ID.String()), zap.String("created_by", createdBy.String()))
	return c, nil
}

func (s *competitionService) Update(ctx context.Context, id uuid.UUID, in CompetitionPatch) (*models.Competition, error) {
	var c models.Competition
	if err := s.competitions.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}

	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Rules != nil {
		c.Rules = *in.Rules
	}
	if in.Prizes != nil {
		c.Prizes = *in.Prizes
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = *in.EndDate
	}
	if in.RegistrationDeadline != nil {
		c.RegistrationDeadline = *in.RegistrationDeadline
	}
	if in.MaxParticipants != nil {
		c.MaxParticipants = in.MaxParticipants
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.CategoryID != nil && *in.CategoryID != c.CategoryID {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		c.CategoryID = *in.CategoryID
	}
	if err := c.ValidateSchedule(); err != nil {
		return nil, err
	}

	c.Category = nil
	if err := s.competitions.Update(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *competitionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.competitions.DeleteWithParticipants(ctx, id); err != nil {
		return err
	}
	logger.L().Info("competition deleted", zap.String("competition_id", id.String()))
	return nil
}

func (s *competitionService) Registrations(ctx context.Context, id uuid.UUID) ([]models.Participant, error) {
	var c models.Competition
	if err := s.competitions.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}
	return s.competitions.Participants(ctx, id)
}

func (s *competitionService) UpdateRegistrationStatus(ctx context.Context, competitionID, userID uuid.UUID, status models.RegistrationStatus) (*models.Participant, error) {
	if !status.Valid() {
		return nil, appErr.New(appErr.CodeInvalid, "Invalid status")
	}
	p, err := s.competitions.UpdateParticipantStatus(ctx, competitionID, userID, status)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		title := ""
		if p.Competition != nil {
			title = p.Competition.Title
		}
		if err := s.notifier.RegistrationStatusChanged(ctx, userID, competitionID, title, status); err != nil {
			logger.L().Warn("registration status notification failed",
				zap.String("competition_id", competitionID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
	return p, nil
}

func (s *competitionService) DeactivateEnded(ctx context.Context) (int64, error) {
	n, err := s.competitions.DeactivateEnded(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.L().Info("ended competitions deactivated", zap.Int64("count", n))
	}
	return n, nil
}
