// Package service holds the business rules between the HTTP handlers and the repositories.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"nekozukan/internal/cache"
	"nekozukan/internal/featureflags"
	"nekozukan/internal/models"
	"nekozukan/internal/observability"
	"nekozukan/internal/repository"
)

// Feed paging bounds.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

type PostService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
}

type CreatePostInput struct {
	ImageURL    string
	CatName     string
	PosterName  string
	Description *string
	Tags        []string
}

type ListPostsInput struct {
	Limit       int
	Offset      int
	Order       string
	VisitorHash string
}

func NewPostService(postRepo repository.PostRepository, flags *featureflags.Manager) *PostService {
	return &PostService{postRepo: postRepo, flags: flags}
}

// Normalize applies paging defaults and bounds.
func (in ListPostsInput) Normalize() ListPostsInput {
	if in.Limit <= 0 {
		in.Limit = DefaultPageSize
	}
	if in.Limit > MaxPageSize {
		in.Limit = MaxPageSize
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	if in.Order != repository.OrderLikes {
		in.Order = repository.OrderNew
	}
	return in
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	in = in.Normalize()

	if !s.flags.Enabled(featureflags.FeedCache, in.VisitorHash) {
		return s.postRepo.List(ctx, in.Limit, in.Offset, in.Order)
	}

	var posts []*models.Post
	key := cache.FeedKey(cache.FeedVersion(ctx), in.Order, in.Offset, in.Limit)
	hit, err := cache.Aside(ctx, key, &posts, cache.FeedTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.postRepo.List(ctx, in.Limit, in.Offset, in.Order)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if hit {
		observability.FeedCacheLookups.WithLabelValues("hit").Inc()
	} else {
		observability.FeedCacheLookups.WithLabelValues("miss").Inc()
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// GetPost returns one live post. With feed_cache on it is served cache-aside
// under cache.PostKey; like and delete paths invalidate that key.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post *models.Post
	fetch := func() error {
		var fetchErr error
		post, fetchErr = s.postRepo.GetByID(ctx, id)
		return fetchErr
	}

	var err error
	if s.flags.Enabled(featureflags.FeedCache, "") {
		_, err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	catName := strings.TrimSpace(in.CatName)
	if catName == "" {
		return nil, models.NewValidationError("cat_name is required")
	}
	if utf8.RuneCountInString(catName) > MaxCatNameLen {
		return nil, models.NewValidationError(fmt.Sprintf("cat_name too long (max %d characters)", MaxCatNameLen))
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		return nil, models.NewValidationError("image_url is required")
	}
	if u, err := url.ParseRequestURI(imageURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, models.NewValidationError("image_url must be an http(s) URL")
	}

	posterName, err := normalizeName("poster_name", in.PosterName)
	if err != nil {
		return nil, err
	}

	var description *string
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(d) > MaxDescriptionLen {
			return nil, models.NewValidationError(fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLen))
		}
		if d != "" {
			description = &d
		}
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ImageURL:    imageURL,
		CatName:     catName,
		PosterName:  posterName,
		Description: description,
		Tags:        tags,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}
	cache.InvalidateFeed(ctx)
	return post, nil
}

// DeletePost hides a post from the feed without removing its row.
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	if err := s.postRepo.SoftDelete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}
