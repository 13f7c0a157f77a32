package service

import (
	"context"
	"errors"
	"testing"

	"nekozukan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint) (*models.Post, error)
	listFn       func(context.Context, int, int, string) ([]*models.Post, error)
	softDeleteFn func(context.Context, uint) error
	incrementFn  func(context.Context, uint) (int, error)
	decrementFn  func(context.Context, uint) (int, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, order string) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, order)
}
func (s *postRepoStub) SoftDelete(ctx context.Context, id uint) error {
	return s.softDeleteFn(ctx, id)
}
func (s *postRepoStub) IncrementLikes(ctx context.Context, id uint) (int, error) {
	return s.incrementFn(ctx, id)
}
func (s *postRepoStub) DecrementLikes(ctx context.Context, id uint) (int, error) {
	return s.decrementFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn:    func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:       func(_ context.Context, _, _ int, _ string) ([]*models.Post, error) { return []*models.Post{}, nil },
		softDeleteFn: func(_ context.Context, _ uint) error { return nil },
		incrementFn:  func(_ context.Context, _ uint) (int, error) { return 1, nil },
		decrementFn:  func(_ context.Context, _ uint) (int, error) { return 0, nil },
	}
}

func missingPostRepo() *postRepoStub {
	r := noopPostRepo()
	r.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return nil, gorm.ErrRecordNotFound }
	return r
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	createFn   func(context.Context, uint, string) (*models.Like, error)
	deleteFn   func(context.Context, uint, string) error
	existsFn   func(context.Context, uint, string) (bool, error)
	likeTxFn   func(context.Context, uint, string) (int, error)
	unlikeTxFn func(context.Context, uint, string) (int, error)
}

func (s *likeRepoStub) Create(ctx context.Context, postID uint, hash string) (*models.Like, error) {
	return s.createFn(ctx, postID, hash)
}
func (s *likeRepoStub) Delete(ctx context.Context, postID uint, hash string) error {
	return s.deleteFn(ctx, postID, hash)
}
func (s *likeRepoStub) Exists(ctx context.Context, postID uint, hash string) (bool, error) {
	return s.existsFn(ctx, postID, hash)
}
func (s *likeRepoStub) LikeTx(ctx context.Context, postID uint, hash string) (int, error) {
	return s.likeTxFn(ctx, postID, hash)
}
func (s *likeRepoStub) UnlikeTx(ctx context.Context, postID uint, hash string) (int, error) {
	return s.unlikeTxFn(ctx, postID, hash)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		createFn: func(_ context.Context, postID uint, hash string) (*models.Like, error) {
			return &models.Like{ID: 1, PostID: postID, VisitorHash: hash}, nil
		},
		deleteFn:   func(_ context.Context, _ uint, _ string) error { return nil },
		existsFn:   func(_ context.Context, _ uint, _ string) (bool, error) { return false, nil },
		likeTxFn:   func(_ context.Context, _ uint, _ string) (int, error) { return 1, nil },
		unlikeTxFn: func(_ context.Context, _ uint, _ string) (int, error) { return 0, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}
