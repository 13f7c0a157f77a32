// Package likes performs like and unlike against the remote store and
// records the outcome in the local liked set.
package likes

import (
	"context"
	"fmt"
	"log/slog"

	"nekozukan/internal/remote"
)

// Remote steps named in RemoteError.Op.
const (
	OpInsertLike     = "insert_like"
	OpDeleteLike     = "delete_like"
	OpIncrementLikes = "increment_likes"
	OpDecrementLikes = "decrement_likes"
	OpLikePost       = "like_post"
	OpUnlikePost     = "unlike_post"
)

// RemoteError reports which remote step failed.
type RemoteError struct {
	Op     string
	PostID uint
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s post %d: %v", e.Op, e.PostID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Identity is the local state the mutator reads and writes.
type Identity interface {
	VisitorID() string
	MarkLiked(postID uint) error
	MarkUnliked(postID uint) error
}

// Mutator runs the like protocol. Local state changes only after every
// remote step has succeeded.
type Mutator struct {
	store  remote.Store
	ident  Identity
	atomic remote.AtomicLiker
	log    *slog.Logger
}

type Option func(*Mutator)

// WithAtomic replaces the two remote steps with one transactional call when
// the store supports it.
func WithAtomic(enabled bool) Option {
	return func(m *Mutator) {
		if !enabled {
			m.atomic = nil
			return
		}
		if a, ok := m.store.(remote.AtomicLiker); ok {
			m.atomic = a
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Mutator) { m.log = l }
}

func NewMutator(store remote.Store, ident Identity, opts ...Option) *Mutator {
	m := &Mutator{store: store, ident: ident, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Atomic reports whether the transactional path is in use.
func (m *Mutator) Atomic() bool { return m.atomic != nil }

// Like writes the relationship, increments the counter and marks the post
// liked. A duplicate relationship comes back as remote.ErrConflict and is
// not retried.
func (m *Mutator) Like(ctx context.Context, postID uint) error {
	visitor := m.ident.VisitorID()

	if m.atomic != nil {
		if _, err := m.atomic.LikeAtomic(ctx, postID, visitor); err != nil {
			return &RemoteError{Op: OpLikePost, PostID: postID, Err: err}
		}
	} else {
		if err := m.store.InsertLike(ctx, postID, visitor); err != nil {
			return &RemoteError{Op: OpInsertLike, PostID: postID, Err: err}
		}
		if _, err := m.store.IncrementLikes(ctx, postID); err != nil {
			m.partial(OpInsertLike, OpIncrementLikes, postID, err)
			return &RemoteError{Op: OpIncrementLikes, PostID: postID, Err: err}
		}
	}

	if err := m.ident.MarkLiked(postID); err != nil {
		m.log.Warn("like recorded remotely but not locally", "post_id", postID, "error", err)
	}
	return nil
}

// Unlike deletes the relationship, decrements the counter and unmarks the
// post. A missing relationship comes back as remote.ErrNotFound.
func (m *Mutator) Unlike(ctx context.Context, postID uint) error {
	visitor := m.ident.VisitorID()

	if m.atomic != nil {
		if _, err := m.atomic.UnlikeAtomic(ctx, postID, visitor); err != nil {
			return &RemoteError{Op: OpUnlikePost, PostID: postID, Err: err}
		}
	} else {
		if err := m.store.DeleteLike(ctx, postID, visitor); err != nil {
			return &RemoteError{Op: OpDeleteLike, PostID: postID, Err: err}
		}
		if _, err := m.store.DecrementLikes(ctx, postID); err != nil {
			m.partial(OpDeleteLike, OpDecrementLikes, postID, err)
			return &RemoteError{Op: OpDecrementLikes, PostID: postID, Err: err}
		}
	}

	if err := m.ident.MarkUnliked(postID); err != nil {
		m.log.Warn("unlike recorded remotely but not locally", "post_id", postID, "error", err)
	}
	return nil
}

// partial logs a relationship write whose counter step failed. The counter
// is left off by one; nothing is rolled back.
func (m *Mutator) partial(done, failed string, postID uint, err error) {
	m.log.Warn("counter adjustment failed after relationship write",
		"post_id", postID, "completed", done, "failed", failed, "error", err)
}
