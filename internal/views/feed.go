package views

import (
	"context"
	"sync"

	"nekozukan/internal/remote"
)

// Query selects a feed page.
type Query struct {
	Offset int
	Order  string
}

// Card pairs a post with its mounted feed view.
type Card struct {
	Post remote.Post
	View *PostView
}

// Feed loads pages of posts and mounts a card for each.
type Feed struct {
	store    remote.Store
	reg      *Registry
	liked    LikedSet
	pageSize int

	mu     sync.Mutex
	order  string
	offset int
	cards  []Card
	more   bool
}

func NewFeed(store remote.Store, reg *Registry, liked LikedSet, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = remote.DefaultPageSize
	}
	return &Feed{store: store, reg: reg, liked: liked, pageSize: pageSize, order: remote.OrderNew}
}

// Load replaces the feed with the page at q. Read errors show as an empty page.
func (f *Feed) Load(ctx context.Context, q Query) []Card {
	order := q.Order
	if order != remote.OrderLikes {
		order = remote.OrderNew
	}
	posts := f.store.ListPosts(ctx, remote.ListQuery{Offset: q.Offset, Limit: f.pageSize, Order: order})

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		f.reg.Unmount(c.View)
	}
	f.cards = nil
	f.order = order
	f.offset = max(q.Offset, 0)
	f.mountLocked(posts)
	return append([]Card(nil), f.cards...)
}

// NextPage appends the following page and returns the new cards.
func (f *Feed) NextPage(ctx context.Context) []Card {
	f.mu.Lock()
	q := remote.ListQuery{Offset: f.offset, Limit: f.pageSize, Order: f.order}
	f.mu.Unlock()

	posts := f.store.ListPosts(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	start := len(f.cards)
	f.mountLocked(posts)
	return append([]Card(nil), f.cards[start:]...)
}

func (f *Feed) mountLocked(posts []remote.Post) {
	for _, p := range posts {
		v := f.reg.Mount(p.ID, KindCard, f.liked.IsLiked(p.ID), p.LikesCount)
		f.cards = append(f.cards, Card{Post: p, View: v})
	}
	f.offset += len(posts)
	f.more = len(posts) == f.pageSize
}

// Cards returns the loaded cards in display order.
func (f *Feed) Cards() []Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Card(nil), f.cards...)
}

// HasMore reports whether the last page was full.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.more
}

// Order returns the current sort order.
func (f *Feed) Order() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}
