package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort orders for competition listings.
const (
	SortNewest   = "newest"
	SortPopular  = "popular"
	SortTrending = "trending"
)

// CompetitionFilter selects a page of competitions.
type CompetitionFilter struct {
	ActiveOnly bool
	Search     string
	CategoryID *uuid.UUID
	StartFrom  *time.Time
	StartTo    *time.Time
	Sort       string
	Page       int
	Limit      int
}

type CompetitionRepository interface {
	BaseRepository[models.Competition]
	List(ctx context.Context, f CompetitionFilter) ([]models.Competition, int64, error)
	ListActive(ctx context.Context, limit int) ([]models.Competition, error)
	GetDetailed(ctx context.Context, id uuid.UUID, dest *models.Competition) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Register(ctx context.Context, competitionID, userID uuid.UUID, now time.Time) (*models.Participant, error)
	Participants(ctx context.Context, competitionID uuid.UUID) ([]models.Participant, error)
	UpdateParticipantStatus(ctx context.Context, competitionID, userID uuid.UUID, status models.RegistrationStatus) (*models.Participant, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Participant, error)
	DeleteWithParticipants(ctx context.Context, id uuid.UUID) error
	DeactivateEnded(ctx context.Context, now time.Time) (int64, error)
}

type competitionRepository struct {
	BaseRepository[models.Competition]
	db *gorm.DB
}

const competitionNotFound = "Competition not found"

func NewCompetitionRepository(db *gorm.DB) CompetitionRepository {
	return &competitionRepository{BaseRepository: NewBaseRepository[models.Competition](db, competitionNotFound), db: db}
}

func (r *competitionRepository) filtered(ctx context.Context, f CompetitionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Competition{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Search != "" {
		p := utils.ContainsPattern(f.Search)
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", p, p)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.StartFrom != nil {
		q = q.Where("start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("start_date <= ?", *f.StartTo)
	}
	return q
}

func (r *competitionRepository) List(ctx context.Context, f CompetitionFilter) ([]models.Competition, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, translate(err, competitionNotFound, "count competitions")
	}

	order := "created_at DESC"
	switch f.Sort {
	case SortPopular:
		order = "registration_count DESC, created_at DESC"
	case SortTrending:
		order = "views DESC, created_at DESC"
	}

	var out []models.Competition
	err := r.filtered(ctx, f).
		Preload("Category").
		Order(order).
		Offset(paginate(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err, competitionNotFound, "list competitions")
	}
	return out, total, nil
}

func (r *competitionRepository) ListActive(ctx context.Context, limit int) ([]models.Competition, error) {
	var out []models.Competition
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err, competitionNotFound, "list active competitions")
	}
	return out, nil
}

func (r *competitionRepository) GetDetailed(ctx context.Context, id uuid.UUID, dest *models.Competition) error {
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("CreatedBy").
		First(dest, "id = ?", id).Error
	if err != nil {
		return translate(err, competitionNotFound, "get competition")
	}
	return nil
}

func (r *competitionRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Competition{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return translate(res.Error, competitionNotFound, "increment views")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, competitionNotFound)
	}
	return nil
}

// Update writes the editable fields of c. The counters are owned by Register and
// IncrementViews and are never written from a possibly stale copy.
func (r *competitionRepository) Update(ctx context.Context, c *models.Competition) error {
	res := r.db.WithContext(ctx).
		Model(c).
		Select("*").
		Omit(clause.Associations, "id", "registration_count", "views", "created_by_id", "created_at").
		Updates(c)
	if res.Error != nil {
		return translate(res.Error, competitionNotFound, "update competition")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, competitionNotFound)
	}
	return nil
}

// Register appends a pending participant while holding the competition row lock,
// so concurrent registrations cannot overfill it or record a user twice.
func (r *competitionRepository) Register(ctx context.Context, competitionID, userID uuid.UUID, now time.Time) (*models.Participant, error) {
	var p *models.Participant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Competition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", competitionID).Error; err != nil {
			return translate(err, competitionNotFound, "lock competition")
		}

		var count, mine int64
		if err := tx.Model(&models.Participant{}).Where("competition_id = ?", competitionID).Count(&count).Error; err != nil {
			return translate(err, competitionNotFound, "count participants")
		}
		if err := tx.Model(&models.Participant{}).Where("competition_id = ? AND user_id = ?", competitionID, userID).Count(&mine).Error; err != nil {
			return translate(err, competitionNotFound, "check participant")
		}
		if err := c.CheckRegistration(now, count, mine > 0); err != nil {
			return err
		}

		p = &models.Participant{
			CompetitionID: competitionID,
			UserID:        userID,
			Status:        models.StatusPending,
			RegisteredAt:  now,
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return translate(err, competitionNotFound, "create participant")
		}
		if err := tx.Model(&models.Competition{}).Where("id = ?", competitionID).
			Update("registration_count", count+1).Error; err != nil {
			return translate(err, competitionNotFound, "update registration count")
		}
		link := models.UserCompetition{UserID: userID, CompetitionID: competitionID, CreatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return translate(err, competitionNotFound, "link user competition")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *competitionRepository) Participants(ctx context.Context, competitionID uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("competition_id = ?", competitionID).
		Order("registered_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, competitionNotFound, "list participants")
	}
	return out, nil
}

func (r *competitionRepository) UpdateParticipantStatus(ctx context.Context, competitionID, userID uuid.UUID, status models.RegistrationStatus) (*models.Participant, error) {
	var c models.Competition
	if err := r.GetByID(ctx, competitionID, &c); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Update("status", string(status))
	if res.Error != nil {
		return nil, translate(res.Error, "Participant not found", "update participant status")
	}
	if res.RowsAffected == 0 {
		return nil, appErr.New(appErr.CodeNotFound, "Participant not found")
	}

	var p models.Participant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		First(&p).Error
	if err != nil {
		return nil, translate(err, "Participant not found", "get participant")
	}
	p.Competition = &c
	return &p, nil
}

func (r *competitionRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	err := r.db.WithContext(ctx).
		Preload("Competition").
		Preload("Competition.Category").
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, competitionNotFound, "list user registrations")
	}
	return out, nil
}

// DeleteWithParticipants removes the competition and its participant rows.
// Users' registered-competition links are left dangling.
func (r *competitionRepository) DeleteWithParticipants(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Competition{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, competitionNotFound, "delete competition")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, competitionNotFound)
		}
		if err := tx.Where("competition_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return translate(err, competitionNotFound, "delete participants")
		}
		return nil
	})
}

func (r *competitionRepository) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Competition{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, translate(res.Error, competitionNotFound, "deactivate ended competitions")
	}
	return res.RowsAffected, nil
}
