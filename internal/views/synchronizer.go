package views

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single like or unlike.
const DefaultTimeout = 10 * time.Second

// Toast messages shown for failed actions.
const (
	MsgMutationFailed = "エラーが発生しました"
	MsgTimedOut       = "タイムアウトしました"
	MsgCommentFailed  = "コメントの投稿に失敗しました"
)

var (
	// ErrMutationInFlight is returned when a post already has a like or
	// unlike running. The store is not contacted.
	ErrMutationInFlight = errors.New("mutation already in flight for post")
	ErrTimeout          = errors.New("mutation timed out")
)

type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

// Notifier shows transient messages.
type Notifier interface {
	Toast(kind ToastKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ToastKind, string)

func (f NotifierFunc) Toast(kind ToastKind, message string) { f(kind, message) }

// Mutator performs the remote like protocol.
type Mutator interface {
	Like(ctx context.Context, postID uint) error
	Unlike(ctx context.Context, postID uint) error
}

// LikedSet answers whether the visitor has liked a post.
type LikedSet interface {
	IsLiked(postID uint) bool
}

// Outcome is the state every view of PostID shows after a command.
type Outcome struct {
	PostID uint
	Liked  bool
	Count  int
}

// Synchronizer runs like commands and repaints every view of the post.
type Synchronizer struct {
	reg      *Registry
	mut      Mutator
	liked    LikedSet
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	inflight map[uint]bool
}

type SyncOption func(*Synchronizer)

func WithTimeout(d time.Duration) SyncOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) SyncOption {
	return func(s *Synchronizer) { s.log = l }
}

func NewSynchronizer(reg *Registry, mut Mutator, liked LikedSet, notifier Notifier, opts ...SyncOption) *Synchronizer {
	if notifier == nil {
		notifier = NotifierFunc(func(ToastKind, string) {})
	}
	s := &Synchronizer{
		reg:      reg,
		mut:      mut,
		liked:    liked,
		notifier: notifier,
		timeout:  DefaultTimeout,
		log:      slog.New(slog.DiscardHandler),
		inflight: make(map[uint]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InFlight reports whether postID has a mutation running.
func (s *Synchronizer) InFlight(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[postID]
}

// Toggle likes the post if the visitor has not liked it, otherwise unlikes it.
// from is the view the user acted on; nil means no particular view.
func (s *Synchronizer) Toggle(ctx context.Context, postID uint, from *PostView) (Outcome, error) {
	if s.liked.IsLiked(postID) {
		return s.Unlike(ctx, postID, from)
	}
	return s.Like(ctx, postID, from)
}

func (s *Synchronizer) Like(ctx context.Context, postID uint, from *PostView) (Outcome, error) {
	return s.run(ctx, postID, from, true)
}

func (s *Synchronizer) Unlike(ctx context.Context, postID uint, from *PostView) (Outcome, error) {
	return s.run(ctx, postID, from, false)
}

func (s *Synchronizer) acquire(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[postID] {
		return false
	}
	s.inflight[postID] = true
	return true
}

func (s *Synchronizer) release(postID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, postID)
}

func (s *Synchronizer) run(ctx context.Context, postID uint, from *PostView, like bool) (Outcome, error) {
	base, _ := s.reg.DisplayedCount(postID, from)
	before := Outcome{PostID: postID, Liked: s.liked.IsLiked(postID), Count: base}

	if !s.acquire(postID) {
		return before, ErrMutationInFlight
	}
	s.reg.setBusy(postID, true)
	defer s.reg.setBusy(postID, false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The guard is held until the call itself returns, even past the
	// deadline, so a hung call cannot overlap a retry.
	done := make(chan error, 1)
	go func() {
		defer s.release(postID)
		if like {
			done <- s.mut.Like(ctx, postID)
		} else {
			done <- s.mut.Unlike(ctx, postID)
		}
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		select {
		case err = <-done:
		default:
			err = ctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				err = ErrTimeout
			}
		}
	}

	// A cancelled caller is going away; there is nobody to toast.
	if errors.Is(err, context.Canceled) {
		s.log.Debug("like mutation cancelled", "post_id", postID, "like", like)
		return before, err
	}
	if err != nil {
		msg := MsgMutationFailed
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			msg = MsgTimedOut
		}
		s.log.Warn("like mutation failed", "post_id", postID, "like", like, "error", err)
		s.notifier.Toast(ToastError, msg)
		return before, err
	}

	count := base + 1
	if !like {
		count = max(base-1, 0)
	}
	s.reg.apply(postID, like, count)
	return Outcome{PostID: postID, Liked: like, Count: count}, nil
}
