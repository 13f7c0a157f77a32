package service

import (
	"context"
	"strings"
	"testing"

	"nekozukan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo())
	ctx := context.Background()

	t.Run("whitespace content", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, Content: " \n\t "})
		assertValidationError(t, err)
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, Content: strings.Repeat("に", MaxCommentLen+1)})
		assertValidationError(t, err)
	})

	t.Run("name too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, Content: "hi", PosterName: strings.Repeat("n", MaxPosterNameLen+1)})
		assertValidationError(t, err)
	})

	t.Run("unknown post", func(t *testing.T) {
		t.Parallel()
		svc2 := NewCommentService(noopCommentRepo(), missingPostRepo())
		_, err := svc2.CreateComment(ctx, CreateCommentInput{PostID: 99, Content: "hi"})
		assertAppErrorCode(t, err, models.CodeNotFound)
	})
}

func TestCommentService_CreateComment_Success(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 42
		return nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{PostID: 5, Content: "  かわいい  "})
	require.NoError(t, err)
	assert.Equal(t, uint(42), c.ID)
	assert.Equal(t, "かわいい", c.Content)
	assert.Equal(t, models.AnonymousName, c.PosterName)
}

func TestCommentService_ListComments(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.listByPostFn = func(_ context.Context, postID uint) ([]*models.Comment, error) {
		return []*models.Comment{{ID: 1, PostID: postID}}, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	got, err := svc.ListComments(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = NewCommentService(commentRepo, missingPostRepo()).ListComments(context.Background(), 5)
	assertAppErrorCode(t, err, models.CodeNotFound)
}
