// Package remote is the client side of the photo feed API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Sentinel errors for the statuses the like protocol treats specially.
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// Sort orders accepted by ListPosts.
const (
	OrderNew   = "new"
	OrderLikes = "likes"
)

// DefaultPageSize matches the server's page size.
const DefaultPageSize = 12

// Post mirrors the server's post record.
type Post struct {
	ID          uint      `json:"id"`
	ImageURL    string    `json:"image_url"`
	CatName     string    `json:"cat_name"`
	PosterName  string    `json:"poster_name"`
	Description *string   `json:"description"`
	Tags        []string  `json:"tags"`
	LikesCount  int       `json:"likes_count"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Comment mirrors the server's comment record.
type Comment struct {
	ID         uint      `json:"id"`
	PostID     uint      `json:"post_id"`
	PosterName string    `json:"poster_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListQuery struct {
	Offset int
	Limit  int
	Order  string
}

type NewPost struct {
	ImageURL    string   `json:"image_url"`
	CatName     string   `json:"cat_name"`
	PosterName  string   `json:"poster_name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type NewComment struct {
	PostID     uint   `json:"-"`
	PosterName string `json:"poster_name,omitempty"`
	Content    string `json:"content"`
}

// Object is the result of an upload.
type Object struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	PublicURL    string `json:"public_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	WebPURL      string `json:"webp_url,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int    `json:"size_bytes"`
}

// Store is the remote persistence the client depends on. List reads never
// fail: errors come back as an empty result.
type Store interface {
	ListPosts(ctx context.Context, q ListQuery) []Post
	GetPost(ctx context.Context, id uint) (*Post, error)
	CreatePost(ctx context.Context, p NewPost) (*Post, error)
	InsertLike(ctx context.Context, postID uint, visitorID string) error
	DeleteLike(ctx context.Context, postID uint, visitorID string) error
	IncrementLikes(ctx context.Context, postID uint) (int, error)
	DecrementLikes(ctx context.Context, postID uint) (int, error)
	InsertComment(ctx context.Context, c NewComment) (*Comment, error)
	ListComments(ctx context.Context, postID uint) []Comment
	Upload(ctx context.Context, bucket, filename string, r io.Reader) (*Object, error)
}

// AtomicLiker is implemented by stores offering the relationship write and
// counter adjustment as one server-side transaction.
type AtomicLiker interface {
	LikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error)
	UnlikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error)
}

// LikeChecker is implemented by stores that can report the visitor's
// server-side like on a post.
type LikeChecker interface {
	HasLiked(ctx context.Context, postID uint, visitorID string) (bool, error)
}

// Flags is implemented by stores that expose feature flags.
type Flags interface {
	Flags(ctx context.Context) (map[string]bool, error)
}

// APIError is a non-2xx answer other than 404 and 409.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}
