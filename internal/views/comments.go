package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"nekozukan/internal/remote"
)

// Input limits for the comment form.
const (
	MaxCommentLen    = 200
	MaxPosterNameLen = 20
	AnonymousName    = "名無しさん"
)

var (
	ErrEmptyComment   = errors.New("comment is empty")
	ErrCommentTooLong = fmt.Errorf("comment longer than %d characters", MaxCommentLen)
	ErrPosterNameLong = fmt.Errorf("name longer than %d characters", MaxPosterNameLen)
)

// Comments handles the comment form.
type Comments struct {
	store    remote.Store
	detail   *Detail
	notifier Notifier
}

func NewComments(store remote.Store, detail *Detail, notifier Notifier) *Comments {
	if notifier == nil {
		notifier = NotifierFunc(func(ToastKind, string) {})
	}
	return &Comments{store: store, detail: detail, notifier: notifier}
}

// Submit validates and posts a comment. Input errors return before any
// remote call. On success the comment is appended to the open detail view
// when it shows the same post.
func (c *Comments) Submit(ctx context.Context, postID uint, posterName, content string) (*remote.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(content) > MaxCommentLen {
		return nil, ErrCommentTooLong
	}
	posterName = strings.TrimSpace(posterName)
	if utf8.RuneCountInString(posterName) > MaxPosterNameLen {
		return nil, ErrPosterNameLong
	}
	if posterName == "" {
		posterName = AnonymousName
	}

	created, err := c.store.InsertComment(ctx, remote.NewComment{
		PostID:     postID,
		PosterName: posterName,
		Content:    content,
	})
	if err != nil {
		c.notifier.Toast(ToastError, MsgCommentFailed)
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	if c.detail != nil {
		c.detail.appendComment(*created)
	}
	return created, nil
}
