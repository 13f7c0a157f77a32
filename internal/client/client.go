// Package client assembles the terminal front end: local identity, remote
// store, like protocol and view synchronizer.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"nekozukan/internal/config"
	"nekozukan/internal/likes"
	"nekozukan/internal/localstore"
	"nekozukan/internal/remote"
	"nekozukan/internal/views"
)

// PhotoBucket is where post images are uploaded.
const PhotoBucket = "cat-photos"

// Client bundles the front-end components.
type Client struct {
	Config   *config.ClientConfig
	Log      *slog.Logger
	Identity *localstore.Identity
	Store    *remote.HTTPStore
	Mutator  *likes.Mutator
	Registry *views.Registry
	Sync     *views.Synchronizer
	Detail   *views.Detail
	Comments *views.Comments
	Feed     *views.Feed
}

// New builds a Client. The liked set lives in cfg.StoragePath, falling back
// to memory when the file cannot be used. Atomic likes are used when the
// server reports the atomic_likes flag for this visitor.
func New(ctx context.Context, cfg *config.ClientConfig, log *slog.Logger, notifier views.Notifier) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var kv localstore.KV = localstore.NewFileKV(cfg.StoragePath)
	if _, _, err := kv.Get(localstore.VisitorKey); err != nil {
		log.Warn("local storage unavailable, likes will not persist", "path", cfg.StoragePath, "error", err)
		kv = localstore.NewMemoryKV()
	}
	ident := localstore.NewIdentity(kv, log)

	store := remote.NewHTTPStore(cfg.APIURL, cfg.Timeout(), ident.VisitorID, log)

	atomic := false
	if flags, err := store.Flags(ctx); err != nil {
		log.Debug("flags unavailable, using two-step likes", "error", err)
	} else {
		atomic = flags["atomic_likes"]
	}

	reg := views.NewRegistry()
	mut := likes.NewMutator(store, ident, likes.WithAtomic(atomic), likes.WithLogger(log))
	detail := views.NewDetail(reg, store)

	return &Client{
		Config:   cfg,
		Log:      log,
		Identity: ident,
		Store:    store,
		Mutator:  mut,
		Registry: reg,
		Sync:     views.NewSynchronizer(reg, mut, ident, notifier, views.WithTimeout(cfg.Timeout()), views.WithLogger(log)),
		Detail:   detail,
		Comments: views.NewComments(store, detail, notifier),
		Feed:     views.NewFeed(store, reg, ident, cfg.PageSize),
	}
}

// NewLogger returns the stderr logger used by the client.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// PostInput describes a new post made from a local image file.
type PostInput struct {
	ImagePath   string
	CatName     string
	PosterName  string
	Description string
	Tags        []string
}

// CreatePost uploads the image and inserts the post that points at it.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (*remote.Post, error) {
	if strings.TrimSpace(in.CatName) == "" {
		return nil, fmt.Errorf("cat name is required")
	}
	f, err := os.Open(in.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	obj, err := c.Store.Upload(ctx, PhotoBucket, in.ImagePath, f)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	np := remote.NewPost{
		ImageURL:   obj.PublicURL,
		CatName:    in.CatName,
		PosterName: in.PosterName,
		Tags:       in.Tags,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		np.Description = &d
	}
	post, err := c.Store.CreatePost(ctx, np)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}
