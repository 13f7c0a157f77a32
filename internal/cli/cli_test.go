package cli

import (
	"bytes"
	"context"
	"testing"

	"nekozukan/internal/client"
	"nekozukan/internal/config"
	"nekozukan/internal/localstore"
	"nekozukan/internal/models"
	"nekozukan/internal/testutil"
	"nekozukan/internal/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	out, errOut *bytes.Buffer
	cfg         *config.ClientConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := testutil.StartAPI(t, "", models.Post{ImageURL: "http://x/a.jpg", CatName: "Tama", LikesCount: 5})
	return &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, cfg: api.ClientConfig(t)}
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	h.errOut.Reset()
	e := &env{out: h.out, errOut: h.errOut, opts: &rootOptions{}}
	e.newClient = func(ctx context.Context, n views.Notifier) (*client.Client, error) {
		return client.New(ctx, h.cfg, nil, n), nil
	}
	root := newRoot(e)
	root.SetArgs(args)
	return root.Execute()
}

func TestLikeUnlikeCycle(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("like", "1"))
	assert.Contains(t, h.out.String(), "♥ 6")

	err := h.run("like", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already liked")
	assert.Contains(t, h.errOut.String(), views.MsgMutationFailed)

	require.NoError(t, h.run("whoami"))
	assert.Contains(t, h.out.String(), "liked:   [1]")

	require.NoError(t, h.run("unlike", "1"))
	assert.Contains(t, h.out.String(), "♡ 5")

	err = h.run("unlike", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not liked")
}

func TestFeedAndComments(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("feed"))
	assert.Contains(t, h.out.String(), "Tama")

	require.NoError(t, h.run("comment", "1", "nice", "cat"))
	assert.Contains(t, h.out.String(), "nice cat")
	assert.Contains(t, h.out.String(), views.AnonymousName)

	assert.ErrorIs(t, h.run("comment", "1", "   "), views.ErrEmptyComment)

	require.NoError(t, h.run("show", "1"))
	assert.Contains(t, h.out.String(), "💬 1")
}

func TestShow_NotesServerDrift(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("like", "1"))
	require.NoError(t, h.run("show", "1"))
	assert.NotContains(t, h.out.String(), "server: liked")

	// local liked set lost, server still holds the like
	require.NoError(t, localstore.NewFileKV(h.cfg.StoragePath).Set(localstore.LikedKey, "[]"))
	require.NoError(t, h.run("show", "1"))
	assert.Contains(t, h.out.String(), "(server: liked=true, local: liked=false)")
	assert.Contains(t, h.out.String(), "♡ 6")
}

func TestInvalidPostID(t *testing.T) {
	h := newHarness(t)
	err := h.run("like", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid post id")
}
