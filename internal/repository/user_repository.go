package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/utils"
	"gorm.io/gorm"
)

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role   models.Role
	Search string
}

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	GetByOAuth(ctx context.Context, provider, oauthID string, dest *models.User) error
	GetWithCompetitions(ctx context.Context, id uuid.UUID, dest *models.User) error
	List(ctx context.Context, f UserFilter) ([]models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SetOnline(ctx context.Context, id uuid.UUID, online bool) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "User not found"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(dest).Error; err != nil {
		return translate(err, "User not found", "get user by email")
	}
	return nil
}

func (r *userRepository) GetByOAuth(ctx context.Context, provider, oauthID string, dest *models.User) error {
	err := r.db.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_id = ?", provider, oauthID).
		First(dest).Error
	if err != nil {
		return translate(err, "User not found", "get user by oauth id")
	}
	return nil
}

func (r *userRepository) GetWithCompetitions(ctx context.Context, id uuid.UUID, dest *models.User) error {
	err := r.db.WithContext(ctx).
		Preload("RegisteredCompetitions", func(db *gorm.DB) *gorm.DB { return db.Order("start_date ASC") }).
		Preload("RegisteredCompetitions.Category").
		First(dest, "id = ?", id).Error
	if err != nil {
		return translate(err, "User not found", "get user")
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	where := sq.And{}
	if f.Role != "" {
		where = append(where, sq.Eq{"role": string(f.Role)})
	}
	if f.Search != "" {
		p := utils.ContainsPattern(f.Search)
		where = append(where, sq.Or{sq.ILike{"name": p}, sq.ILike{"email": p}})
	}
	cond, args, err := where.ToSql()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "build user filter failed")
	}

	var out []models.User
	if err := r.db.WithContext(ctx).Where(cond, args...).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, translate(err, "User not found", "list users")
	}
	return out, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, "User not found", "update user")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "User not found")
	}
	return nil
}

func (r *userRepository) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	return r.UpdateFields(ctx, id, map[string]any{"is_online": online})
}
