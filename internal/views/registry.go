// Package views keeps every on-screen representation of a post in agreement
// after likes and comments, independent of how they are drawn.
package views

import "sync"

// Kind identifies where a post is shown.
type Kind int

const (
	KindCard Kind = iota
	KindDetail
)

func (k Kind) String() string {
	if k == KindDetail {
		return "detail"
	}
	return "card"
}

// PostView is one mounted representation of a post. Fields are owned by the
// Registry it is mounted in; read them through Registry.State.
type PostView struct {
	PostID uint
	Kind   Kind

	liked   bool
	count   int
	enabled bool
}

// State is a copy of a view's visible state.
type State struct {
	PostID  uint
	Kind    Kind
	Liked   bool
	Count   int
	Enabled bool
}

// Registry tracks mounted views by post id.
type Registry struct {
	mu    sync.RWMutex
	views map[uint][]*PostView
	busy  map[uint]bool
}

func NewRegistry() *Registry {
	return &Registry{
		views: make(map[uint][]*PostView),
		busy:  make(map[uint]bool),
	}
}

// Mount registers a view for postID with the given liked state and count.
// A view mounted while its post has a mutation in flight starts disabled.
func (r *Registry) Mount(postID uint, kind Kind, liked bool, count int) *PostView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := &PostView{PostID: postID, Kind: kind, liked: liked, count: max(count, 0), enabled: !r.busy[postID]}
	r.views[postID] = append(r.views[postID], v)
	return v
}

// Unmount removes v. Unknown views are ignored.
func (r *Registry) Unmount(v *PostView) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.views[v.PostID]
	for i, cur := range list {
		if cur == v {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.views, v.PostID)
	} else {
		r.views[v.PostID] = list
	}
}

// Views returns the mounted views of postID in mount order.
func (r *Registry) Views(postID uint) []*PostView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*PostView(nil), r.views[postID]...)
}

// State returns v's visible state.
func (r *Registry) State(v *PostView) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{PostID: v.PostID, Kind: v.Kind, Liked: v.liked, Count: v.count, Enabled: v.enabled}
}

// DisplayedCount returns the count shown by from, or by the first mounted
// view of postID when from is nil.
func (r *Registry) DisplayedCount(postID uint, from *PostView) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if from != nil {
		return from.count, true
	}
	if list := r.views[postID]; len(list) > 0 {
		return list[0].count, true
	}
	return 0, false
}

// setBusy enables or disables every view of postID.
func (r *Registry) setBusy(postID uint, busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if busy {
		r.busy[postID] = true
	} else {
		delete(r.busy, postID)
	}
	for _, v := range r.views[postID] {
		v.enabled = !busy
	}
}

// apply paints liked and count on every view of postID.
func (r *Registry) apply(postID uint, liked bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.views[postID] {
		v.liked = liked
		v.count = count
	}
}
