package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
)

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, name, description string) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, name, description string) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var errCategoryExists = appErr.New(appErr.CodeConflict, "Category already exists")

type categoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) CategoryService {
	return &categoryService{categories: categories}
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := s.categories.GetByID(ctx, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// nameTaken reports whether another category already uses name, ignoring case.
func (s *categoryService) nameTaken(ctx context.Context, name string, self uuid.UUID) (bool, error) {
	var existing models.Category
	err := s.categories.GetByName(ctx, name, &existing)
	if err == nil {
		return existing.ID != self, nil
	}
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return false, nil
	}
	return false, err
}

func (s *categoryService) Create(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	taken, err := s.nameTaken(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errCategoryExists
	}

	c := &models.Category{Name: name, Description: description}
	if err := s.categories.Create(ctx, c); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, errCategoryExists
		}
		return nil, err
	}
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, name, description string) (*models.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	taken, err := s.nameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errCategoryExists
	}

	c.Name, c.Description = name, description
	if err := s.categories.Update(ctx, c); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, errCategoryExists
		}
		return nil, err
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}
