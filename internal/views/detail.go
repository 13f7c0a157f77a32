package views

import (
	"context"
	"sync"

	"nekozukan/internal/remote"
)

// DetailView is the open detail view of one post. Its comment list grows
// from submit goroutines, so readers go through Comments.
type DetailView struct {
	Post remote.Post
	View *PostView

	mu       sync.RWMutex
	comments []remote.Comment
}

// Detail owns the single open detail view. Opening one closes the previous.
type Detail struct {
	reg   *Registry
	store remote.Store

	mu      sync.Mutex
	current *DetailView
}

func NewDetail(reg *Registry, store remote.Store) *Detail {
	return &Detail{reg: reg, store: store}
}

// Open closes any open view, loads the post's comments and mounts a detail
// view showing liked and count.
func (d *Detail) Open(ctx context.Context, post remote.Post, liked bool, count int) *DetailView {
	d.Close()

	comments := d.store.ListComments(ctx, post.ID)
	dv := &DetailView{
		Post:     post,
		View:     d.reg.Mount(post.ID, KindDetail, liked, count),
		comments: comments,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Another Open may have raced us between Close and here.
	if d.current != nil {
		d.reg.Unmount(d.current.View)
	}
	d.current = dv
	return dv
}

// Close unmounts the open view, if any.
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return
	}
	d.reg.Unmount(d.current.View)
	d.current = nil
}

// Current returns the open view or nil.
func (d *Detail) Current() *DetailView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Comments returns a copy of the comments the view shows, oldest first.
func (dv *DetailView) Comments() []remote.Comment {
	dv.mu.RLock()
	defer dv.mu.RUnlock()
	out := make([]remote.Comment, len(dv.comments))
	copy(out, dv.comments)
	return out
}

// CommentCount is the number of comments the view shows.
func (dv *DetailView) CommentCount() int {
	dv.mu.RLock()
	defer dv.mu.RUnlock()
	return len(dv.comments)
}

// appendComment adds c if the open view shows c's post.
func (d *Detail) appendComment(c remote.Comment) {
	d.mu.Lock()
	dv := d.current
	d.mu.Unlock()
	if dv == nil || dv.Post.ID != c.PostID {
		return
	}
	dv.mu.Lock()
	dv.comments = append(dv.comments, c)
	dv.mu.Unlock()
}
