package repository

import (
	"context"

	"github.com/taakra/engine/internal/models"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	BaseRepository[models.Category]
	GetByName(ctx context.Context, name string, dest *models.Category) error
	List(ctx context.Context) ([]models.Category, error)
}

type categoryRepository struct {
	BaseRepository[models.Category]
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{BaseRepository: NewBaseRepository[models.Category](db, "Category not found"), db: db}
}

func (r *categoryRepository) GetByName(ctx context.Context, name string, dest *models.Category) error {
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(dest).Error; err != nil {
		return translate(err, "Category not found", "get category by name")
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, translate(err, "Category not found", "list categories")
	}
	return out, nil
}
