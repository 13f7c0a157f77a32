// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"nekozukan/internal/models"
	"nekozukan/internal/observability"

	"gorm.io/gorm"
)

// Feed orderings.
const (
	OrderNew   = "new"
	OrderLikes = "likes"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int, order string) ([]*models.Post, error)
	SoftDelete(ctx context.Context, id uint) error
	IncrementLikes(ctx context.Context, id uint) (int, error)
	DecrementLikes(ctx context.Context, id uint) (int, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func live(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	if err := live(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, order string) ([]*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", "posts")
	defer span.End()
	defer observability.TrackQuery("list", "posts")()

	posts := make([]*models.Post, 0, limit)
	err := applyOrder(live(r.db.WithContext(ctx)), order).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return posts, nil
}

// applyOrder appends the ORDER BY for the feed ordering. The id tiebreaker
// keeps offset pagination stable when timestamps or counts collide.
func applyOrder(db *gorm.DB, order string) *gorm.DB {
	if order == OrderLikes {
		return db.Order("likes_count DESC").Order("id DESC")
	}
	return db.Order("created_at DESC").Order("id DESC")
}

func (r *postRepository) SoftDelete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("soft_delete", "posts")()
	res := live(r.db.WithContext(ctx).Model(&models.Post{})).
		Where("id = ?", id).
		UpdateColumn("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) IncrementLikes(ctx context.Context, id uint) (int, error) {
	defer observability.TrackQuery("increment_likes", "posts")()
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = adjustLikes(tx, id, incrementExpr)
		return err
	})
	return count, err
}

func (r *postRepository) DecrementLikes(ctx context.Context, id uint) (int, error) {
	defer observability.TrackQuery("decrement_likes", "posts")()
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = adjustLikes(tx, id, decrementExpr)
		return err
	})
	return count, err
}

const (
	incrementExpr = "likes_count + 1"
	// Floors at zero on every dialect without GREATEST.
	decrementExpr = "CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END"
)

// adjustLikes applies expr to the counter in one UPDATE and reads the result
// back inside the same transaction.
func adjustLikes(tx *gorm.DB, id uint, expr string) (int, error) {
	res := tx.Model(&models.Post{}).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		UpdateColumn("likes_count", gorm.Expr(expr))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var count int
	if err := tx.Model(&models.Post{}).Select("likes_count").Where("id = ?", id).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
