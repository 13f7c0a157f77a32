package likes

import (
	"context"
	"errors"
	"io"
	"testing"

	"nekozukan/internal/localstore"
	"nekozukan/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock of remote.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListPosts(ctx context.Context, q remote.ListQuery) []remote.Post {
	return m.Called(ctx, q).Get(0).([]remote.Post)
}

func (m *MockStore) GetPost(ctx context.Context, id uint) (*remote.Post, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*remote.Post)
	return p, args.Error(1)
}

func (m *MockStore) CreatePost(ctx context.Context, p remote.NewPost) (*remote.Post, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*remote.Post)
	return out, args.Error(1)
}

func (m *MockStore) InsertLike(ctx context.Context, postID uint, visitorID string) error {
	return m.Called(ctx, postID, visitorID).Error(0)
}

func (m *MockStore) DeleteLike(ctx context.Context, postID uint, visitorID string) error {
	return m.Called(ctx, postID, visitorID).Error(0)
}

func (m *MockStore) IncrementLikes(ctx context.Context, postID uint) (int, error) {
	args := m.Called(ctx, postID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) DecrementLikes(ctx context.Context, postID uint) (int, error) {
	args := m.Called(ctx, postID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) InsertComment(ctx context.Context, c remote.NewComment) (*remote.Comment, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(*remote.Comment)
	return out, args.Error(1)
}

func (m *MockStore) ListComments(ctx context.Context, postID uint) []remote.Comment {
	return m.Called(ctx, postID).Get(0).([]remote.Comment)
}

func (m *MockStore) Upload(ctx context.Context, bucket, filename string, r io.Reader) (*remote.Object, error) {
	args := m.Called(ctx, bucket, filename, r)
	out, _ := args.Get(0).(*remote.Object)
	return out, args.Error(1)
}

// MockAtomicStore adds the transactional procedures.
type MockAtomicStore struct {
	MockStore
}

func (m *MockAtomicStore) LikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error) {
	args := m.Called(ctx, postID, visitorID)
	return args.Int(0), args.Error(1)
}

func (m *MockAtomicStore) UnlikeAtomic(ctx context.Context, postID uint, visitorID string) (int, error) {
	args := m.Called(ctx, postID, visitorID)
	return args.Int(0), args.Error(1)
}

var errOffline = errors.New("connection refused")

func setup(t *testing.T) (*MockStore, *localstore.Identity, string) {
	t.Helper()
	ident := localstore.NewIdentity(localstore.NewMemoryKV(), nil)
	return new(MockStore), ident, ident.VisitorID()
}

func TestLike_Success(t *testing.T) {
	store, ident, visitor := setup(t)
	ctx := context.Background()
	store.On("InsertLike", ctx, uint(42), visitor).Return(nil).Once()
	store.On("IncrementLikes", ctx, uint(42)).Return(6, nil).Once()

	require.NoError(t, NewMutator(store, ident).Like(ctx, 42))
	assert.True(t, ident.IsLiked(42))
	store.AssertExpectations(t)
}

func TestLike_DuplicateIsTerminal(t *testing.T) {
	store, ident, visitor := setup(t)
	ctx := context.Background()
	store.On("InsertLike", ctx, uint(42), visitor).Return(remote.ErrConflict).Once()

	err := NewMutator(store, ident).Like(ctx, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrConflict)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpInsertLike, re.Op)
	assert.False(t, ident.IsLiked(42))
	store.AssertNotCalled(t, "IncrementLikes", mock.Anything, mock.Anything)
	store.AssertNumberOfCalls(t, "InsertLike", 1)
}

func TestLike_CounterFailureLeavesLocalStateAlone(t *testing.T) {
	store, ident, visitor := setup(t)
	ctx := context.Background()
	store.On("InsertLike", ctx, uint(42), visitor).Return(nil).Once()
	store.On("IncrementLikes", ctx, uint(42)).Return(0, errOffline).Once()

	err := NewMutator(store, ident).Like(ctx, 42)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpIncrementLikes, re.Op)
	assert.ErrorIs(t, err, errOffline)
	assert.False(t, ident.IsLiked(42))
	store.AssertNotCalled(t, "DeleteLike", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnlike_Success(t *testing.T) {
	store, ident, visitor := setup(t)
	require.NoError(t, ident.MarkLiked(42))
	ctx := context.Background()
	store.On("DeleteLike", ctx, uint(42), visitor).Return(nil).Once()
	store.On("DecrementLikes", ctx, uint(42)).Return(4, nil).Once()

	require.NoError(t, NewMutator(store, ident).Unlike(ctx, 42))
	assert.False(t, ident.IsLiked(42))
}

func TestUnlike_DecrementFailureKeepsLiked(t *testing.T) {
	store, ident, visitor := setup(t)
	require.NoError(t, ident.MarkLiked(42))
	ctx := context.Background()
	store.On("DeleteLike", ctx, uint(42), visitor).Return(nil).Once()
	store.On("DecrementLikes", ctx, uint(42)).Return(0, errOffline).Once()

	err := NewMutator(store, ident).Unlike(ctx, 42)
	require.Error(t, err)
	assert.True(t, ident.IsLiked(42))
}

func TestUnlike_MissingRelationshipIsTerminal(t *testing.T) {
	store, ident, visitor := setup(t)
	ctx := context.Background()
	store.On("DeleteLike", ctx, uint(3), visitor).Return(remote.ErrNotFound).Once()

	err := NewMutator(store, ident).Unlike(ctx, 3)
	assert.ErrorIs(t, err, remote.ErrNotFound)
	store.AssertNotCalled(t, "DecrementLikes", mock.Anything, mock.Anything)
}

func TestAtomicMode(t *testing.T) {
	store := new(MockAtomicStore)
	ident := localstore.NewIdentity(localstore.NewMemoryKV(), nil)
	visitor := ident.VisitorID()
	ctx := context.Background()
	store.On("LikeAtomic", ctx, uint(7), visitor).Return(1, nil).Once()
	store.On("UnlikeAtomic", ctx, uint(7), visitor).Return(0, errOffline).Once()

	m := NewMutator(store, ident, WithAtomic(true))
	require.True(t, m.Atomic())

	require.NoError(t, m.Like(ctx, 7))
	assert.True(t, ident.IsLiked(7))

	err := m.Unlike(ctx, 7)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpUnlikePost, re.Op)
	assert.True(t, ident.IsLiked(7))
	store.AssertNotCalled(t, "InsertLike", mock.Anything, mock.Anything, mock.Anything)
}

func TestAtomicMode_IgnoredWithoutSupport(t *testing.T) {
	store, ident, _ := setup(t)
	assert.False(t, NewMutator(store, ident, WithAtomic(true)).Atomic())
}
