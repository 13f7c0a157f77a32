package service

import (
	"context"
	"errors"
	"log/slog"

	"nekozukan/internal/cache"
	"nekozukan/internal/featureflags"
	"nekozukan/internal/middleware"
	"nekozukan/internal/models"
	"nekozukan/internal/observability"
	"nekozukan/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LikeService manages like relationships and the denormalized like counter.
// Visitors are only ever stored as hashes.
type LikeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
	flags    *featureflags.Manager
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository, flags *featureflags.Manager) *LikeService {
	return &LikeService{likeRepo: likeRepo, postRepo: postRepo, flags: flags}
}

// InsertLike records that visitorID likes postID. A second insert for the same
// pair is a CONFLICT; an unknown post is NOT_FOUND. The counter is untouched.
func (s *LikeService) InsertLike(ctx context.Context, postID uint, visitorID string) (*models.Like, error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.InsertLike", attribute.Int64("post.id", int64(postID)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = requireVisitor(visitorID); err != nil {
		return nil, err
	}
	if _, err = s.postRepo.GetByID(ctx, postID); err != nil {
		err = s.mapErr(err, postID)
		return nil, err
	}

	like, err := s.likeRepo.Create(ctx, postID, models.HashVisitor(visitorID))
	observability.RecordLikeMutation("insert_like", err)
	if err != nil {
		err = s.mapErr(err, postID)
		return nil, err
	}
	return like, nil
}

// DeleteLike removes the relationship. Deleting a like that does not exist
// changes nothing and reports NOT_FOUND.
func (s *LikeService) DeleteLike(ctx context.Context, postID uint, visitorID string) error {
	ctx, span := observability.StartSpan(ctx, "LikeService.DeleteLike", attribute.Int64("post.id", int64(postID)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = requireVisitor(visitorID); err != nil {
		return err
	}
	err = s.likeRepo.Delete(ctx, postID, models.HashVisitor(visitorID))
	observability.RecordLikeMutation("delete_like", err)
	if err != nil {
		err = s.mapErr(err, postID)
	}
	return err
}

// HasLiked reports whether the server holds a like from visitorID on postID.
func (s *LikeService) HasLiked(ctx context.Context, postID uint, visitorID string) (bool, error) {
	if err := requireVisitor(visitorID); err != nil {
		return false, err
	}
	ok, err := s.likeRepo.Exists(ctx, postID, models.HashVisitor(visitorID))
	if err != nil {
		return false, s.mapErr(err, postID)
	}
	return ok, nil
}

// IncrementLikes atomically adds one to the post's counter and returns the new value.
func (s *LikeService) IncrementLikes(ctx context.Context, postID uint) (int, error) {
	n, err := s.postRepo.IncrementLikes(ctx, postID)
	observability.RecordLikeMutation("increment_likes", err)
	if err != nil {
		return 0, s.mapErr(err, postID)
	}
	cache.InvalidatePost(ctx, postID)
	return n, nil
}

// DecrementLikes atomically subtracts one, never going below zero.
func (s *LikeService) DecrementLikes(ctx context.Context, postID uint) (int, error) {
	n, err := s.postRepo.DecrementLikes(ctx, postID)
	observability.RecordLikeMutation("decrement_likes", err)
	if err != nil {
		return 0, s.mapErr(err, postID)
	}
	cache.InvalidatePost(ctx, postID)
	return n, nil
}

// AtomicEnabled reports whether the transactional procedures are exposed to the visitor.
func (s *LikeService) AtomicEnabled(visitorID string) bool {
	subject := ""
	if models.ValidVisitorID(visitorID) {
		subject = models.HashVisitor(visitorID)
	}
	return s.flags.Enabled(featureflags.AtomicLikes, subject)
}

// LikePost inserts the relationship and increments the counter in one transaction.
func (s *LikeService) LikePost(ctx context.Context, postID uint, visitorID string) (int, error) {
	return s.atomic(ctx, "like_post", postID, visitorID, s.likeRepo.LikeTx)
}

// UnlikePost deletes the relationship and decrements the counter in one transaction.
func (s *LikeService) UnlikePost(ctx context.Context, postID uint, visitorID string) (int, error) {
	return s.atomic(ctx, "unlike_post", postID, visitorID, s.likeRepo.UnlikeTx)
}

func (s *LikeService) atomic(
	ctx context.Context,
	op string,
	postID uint,
	visitorID string,
	fn func(context.Context, uint, string) (int, error),
) (int, error) {
	if err := requireVisitor(visitorID); err != nil {
		return 0, err
	}
	if !s.AtomicEnabled(visitorID) {
		return 0, models.NewNotFoundError("Procedure", op)
	}

	ctx, span := observability.StartSpan(ctx, "LikeService."+op, attribute.Int64("post.id", int64(postID)))
	n, err := fn(ctx, postID, models.HashVisitor(visitorID))
	observability.RecordLikeMutation(op, err)
	observability.EndSpan(span, err)
	if err != nil {
		return 0, s.mapErr(err, postID)
	}
	cache.InvalidatePost(ctx, postID)
	return n, nil
}

func (s *LikeService) mapErr(err error, postID uint) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrDuplicateLike):
		return models.NewConflictError("Post already liked", err)
	case errors.Is(err, repository.ErrLikeNotFound):
		return models.NewNotFoundError("Like for post", postID)
	case repository.IsNotFound(err):
		return models.NewNotFoundError("Post", postID)
	default:
		middleware.Logger.Error("like mutation failed", slog.Uint64("post_id", uint64(postID)), slog.String("error", err.Error()))
		return models.NewInternalError(err)
	}
}
