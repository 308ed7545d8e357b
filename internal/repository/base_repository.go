package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	appErr "github.com/taakra/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db       *gorm.DB
	notFound string
}

// NewBaseRepository returns CRUD over T. notFound is the message used when a lookup misses.
func NewBaseRepository[T any](db *gorm.DB, notFound string) BaseRepository[T] {
	return &baseRepository[T]{db: db, notFound: notFound}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(obj).Error; err != nil {
		return translate(err, r.notFound, "create entity")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		return translate(err, r.notFound, "get entity")
	}
	return nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(obj).Error; err != nil {
		return translate(err, r.notFound, "update entity")
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, r.notFound, "delete entity")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, r.notFound)
	}
	return nil
}

// translate maps driver errors onto application codes.
func translate(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := appErr.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.New(appErr.CodeNotFound, notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return appErr.Wrap(err, appErr.CodeConflict, "duplicate value").WithMeta("constraint", pgErr.ConstraintName)
	}
	return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("%s failed", op))
}

func paginate(page, limit int) (offset int) {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
