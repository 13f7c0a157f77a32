package repository

import (
	"context"

	"nekozukan/internal/models"
	"nekozukan/internal/observability"

	"gorm.io/gorm"
)

// LikeRepository stores like relationships between posts and visitors.
// Visitors are identified by the hash of their visitor id only.
type LikeRepository interface {
	Create(ctx context.Context, postID uint, visitorHash string) (*models.Like, error)
	Delete(ctx context.Context, postID uint, visitorHash string) error
	Exists(ctx context.Context, postID uint, visitorHash string) (bool, error)
	// LikeTx inserts the relationship and increments the counter in one transaction.
	LikeTx(ctx context.Context, postID uint, visitorHash string) (int, error)
	// UnlikeTx deletes the relationship and decrements the counter in one transaction.
	UnlikeTx(ctx context.Context, postID uint, visitorHash string) (int, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, postID uint, visitorHash string) (*models.Like, error) {
	defer observability.TrackQuery("create", "likes")()
	return insertLike(r.db.WithContext(ctx), postID, visitorHash)
}

func (r *likeRepository) Delete(ctx context.Context, postID uint, visitorHash string) error {
	defer observability.TrackQuery("delete", "likes")()
	return deleteLike(r.db.WithContext(ctx), postID, visitorHash)
}

func (r *likeRepository) Exists(ctx context.Context, postID uint, visitorHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND visitor_hash = ?", postID, visitorHash).
		Count(&count).Error
	return count > 0, err
}

func (r *likeRepository) LikeTx(ctx context.Context, postID uint, visitorHash string) (int, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "LikeTx", "likes")
	defer span.End()

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLivePost(tx, postID); err != nil {
			return err
		}
		if _, err := insertLike(tx, postID, visitorHash); err != nil {
			return err
		}
		var err error
		count, err = adjustLikes(tx, postID, incrementExpr)
		return err
	})
	return count, err
}

func (r *likeRepository) UnlikeTx(ctx context.Context, postID uint, visitorHash string) (int, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "UnlikeTx", "likes")
	defer span.End()

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLivePost(tx, postID); err != nil {
			return err
		}
		if err := deleteLike(tx, postID, visitorHash); err != nil {
			return err
		}
		var err error
		count, err = adjustLikes(tx, postID, decrementExpr)
		return err
	})
	return count, err
}

func ensureLivePost(tx *gorm.DB, postID uint) error {
	var n int64
	if err := live(tx.Model(&models.Post{})).Where("id = ?", postID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func insertLike(db *gorm.DB, postID uint, visitorHash string) (*models.Like, error) {
	like := &models.Like{PostID: postID, VisitorHash: visitorHash}
	if err := db.Create(like).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateLike
		}
		return nil, err
	}
	return like, nil
}

func deleteLike(db *gorm.DB, postID uint, visitorHash string) error {
	res := db.Where("post_id = ? AND visitor_hash = ?", postID, visitorHash).Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLikeNotFound
	}
	return nil
}
