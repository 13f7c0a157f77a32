package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	feedVersionKey = "feed:version"
	feedKeyFormat  = "feed:v%d:%s:%d:%d"
	postKeyFormat  = "post:%d"
)

const (
	// FeedTTL bounds how stale a cached feed page can be.
	FeedTTL = 30 * time.Second
	// PostTTL bounds how stale a cached single post can be.
	PostTTL = 30 * time.Second
)

// FeedVersion returns the current feed generation. Bumping it orphans every
// cached page at once; orphans expire with FeedTTL.
func FeedVersion(ctx context.Context) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, feedVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// FeedKey names a cached feed page.
func FeedKey(version int64, order string, offset, limit int) string {
	return fmt.Sprintf(feedKeyFormat, version, order, offset, limit)
}

// PostKey names a cached post.
func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyFormat, postID)
}

// Invalidate deletes key, ignoring errors.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateFeed advances the feed generation.
func InvalidateFeed(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, feedVersionKey)
	}
}

// InvalidatePost drops the cached post and every cached feed page.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	InvalidateFeed(ctx)
}
