package service

import (
	"context"
	"strings"
	"testing"

	"nekozukan/internal/cache"
	"nekozukan/internal/featureflags"
	"nekozukan/internal/models"
	"nekozukan/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), nil)
	ctx := context.Background()
	valid := CreatePostInput{ImageURL: "https://cdn.example/cat.jpg", CatName: "Tama"}

	cases := []struct {
		name   string
		mutate func(in *CreatePostInput)
	}{
		{"missing cat name", func(in *CreatePostInput) { in.CatName = "  " }},
		{"cat name too long", func(in *CreatePostInput) { in.CatName = strings.Repeat("猫", MaxCatNameLen+1) }},
		{"missing image", func(in *CreatePostInput) { in.ImageURL = "" }},
		{"image not http", func(in *CreatePostInput) { in.ImageURL = "ftp://cdn.example/cat.jpg" }},
		{"poster name too long", func(in *CreatePostInput) { in.PosterName = strings.Repeat("a", MaxPosterNameLen+1) }},
		{"description too long", func(in *CreatePostInput) { in.Description = strPtr(strings.Repeat("d", MaxDescriptionLen+1)) }},
		{"too many tags", func(in *CreatePostInput) {
			in.Tags = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}},
		{"tag too long", func(in *CreatePostInput) { in.Tags = []string{strings.Repeat("t", MaxTagLen+1)} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := valid
			tc.mutate(&in)
			_, err := svc.CreatePost(ctx, in)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_Normalizes(t *testing.T) {
	t.Parallel()

	var stored *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		stored = p
		return nil
	}
	svc := NewPostService(repo, nil)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		ImageURL:    " https://cdn.example/cat.jpg ",
		CatName:     " ミケ ",
		PosterName:  "   ",
		Description: strPtr("   "),
		Tags:        []string{" #sleepy", "sleepy", "", "#", "orange "},
	})
	require.NoError(t, err)
	assert.Same(t, stored, post)
	assert.Equal(t, uint(7), post.ID)
	assert.Equal(t, "ミケ", post.CatName)
	assert.Equal(t, models.AnonymousName, post.PosterName)
	assert.Nil(t, post.Description)
	assert.Equal(t, models.StringList{"sleepy", "orange"}, post.Tags)
	assert.Equal(t, "https://cdn.example/cat.jpg", post.ImageURL)
}

func TestPostService_ListPosts_Defaults(t *testing.T) {
	t.Parallel()

	var gotLimit, gotOffset int
	var gotOrder string
	repo := noopPostRepo()
	repo.listFn = func(_ context.Context, limit, offset int, order string) ([]*models.Post, error) {
		gotLimit, gotOffset, gotOrder = limit, offset, order
		return []*models.Post{}, nil
	}
	svc := NewPostService(repo, nil)

	_, err := svc.ListPosts(context.Background(), ListPostsInput{Offset: -3, Order: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, gotLimit)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, repository.OrderNew, gotOrder)

	_, err = svc.ListPosts(context.Background(), ListPostsInput{Limit: 500, Order: repository.OrderLikes})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, gotLimit)
	assert.Equal(t, repository.OrderLikes, gotOrder)
}

// Not parallel: the cache client is package state.
func TestPostService_ListPosts_FeedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	calls := 0
	repo := noopPostRepo()
	repo.listFn = func(_ context.Context, _, _ int, _ string) ([]*models.Post, error) {
		calls++
		return []*models.Post{{ID: uint(calls), CatName: "Tama"}}, nil
	}
	svc := NewPostService(repo, featureflags.NewManager("feed_cache=on"))
	ctx := context.Background()

	first, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	second, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first[0].ID, second[0].ID)

	// a like changes counts on the page
	cache.InvalidatePost(ctx, first[0].ID)
	third, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint(2), third[0].ID)
}

// Not parallel: the cache client is package state.
func TestPostService_GetPost_CachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	calls := 0
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		calls++
		return &models.Post{ID: id, CatName: "Tama", LikesCount: calls}, nil
	}
	svc := NewPostService(repo, featureflags.NewManager("feed_cache=on"))
	ctx := context.Background()

	first, err := svc.GetPost(ctx, 7)
	require.NoError(t, err)
	second, err := svc.GetPost(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.LikesCount, second.LikesCount)
	assert.True(t, mr.Exists(cache.PostKey(7)))

	cache.InvalidatePost(ctx, 7)
	assert.False(t, mr.Exists(cache.PostKey(7)))
	third, err := svc.GetPost(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, third.LikesCount)
}

func TestPostService_GetPost_UncachedWhenFlagOff(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	svc := NewPostService(noopPostRepo(), featureflags.NewManager(""))
	_, err := svc.GetPost(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PostKey(7)))
}

func TestPostService_GetAndDelete_NotFound(t *testing.T) {
	t.Parallel()

	repo := missingPostRepo()
	repo.softDeleteFn = func(_ context.Context, _ uint) error { return gorm.ErrRecordNotFound }
	svc := NewPostService(repo, nil)

	_, err := svc.GetPost(context.Background(), 3)
	assertAppErrorCode(t, err, models.CodeNotFound)
	assertAppErrorCode(t, svc.DeletePost(context.Background(), 3), models.CodeNotFound)
}
