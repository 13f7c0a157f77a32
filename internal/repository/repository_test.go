package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"nekozukan/internal/database"
	"nekozukan/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedPosts(t *testing.T, db *gorm.DB, n int) []*models.Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Post{
			ImageURL:   fmt.Sprintf("https://img.example/%d.jpg", i),
			CatName:    fmt.Sprintf("cat-%d", i),
			PosterName: models.AnonymousName,
			LikesCount: i % 4,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(p).Error)
		posts = append(posts, p)
	}
	return posts
}

func TestPostRepository_IncrementLikes_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "likes_count"=likes_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT likes_count FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(6))
	mock.ExpectCommit()

	count, err := repo.IncrementLikes(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DecrementLikes_MissingPost_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "likes_count"=CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DecrementLikes(context.Background(), 404)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_DefaultPage(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	posts := seedPosts(t, db, 15)
	require.NoError(t, repo.SoftDelete(ctx, posts[14].ID))

	got, err := repo.List(ctx, 12, 0, OrderNew)
	require.NoError(t, err)
	require.Len(t, got, 12)

	// newest live post first, the deleted one never shows up
	assert.Equal(t, posts[13].ID, got[0].ID)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].IsDeleted)
		assert.True(t, !got[i].CreatedAt.After(got[i-1].CreatedAt))
	}

	rest, err := repo.List(ctx, 12, 12, OrderNew)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestPostRepository_List_ByLikes(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	seedPosts(t, db, 8)

	got, err := repo.List(context.Background(), 12, 0, OrderLikes)
	require.NoError(t, err)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].LikesCount, got[i].LikesCount)
	}
}

func TestPostRepository_CounterFloorsAtZero(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	p := seedPosts(t, db, 1)[0]

	n, err := repo.IncrementLikes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DecrementLikes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.DecrementLikes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = repo.IncrementLikes(ctx, 9999)
	assert.True(t, IsNotFound(err))
}

func TestPostRepository_SoftDelete(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	p := seedPosts(t, db, 1)[0]

	require.NoError(t, repo.SoftDelete(ctx, p.ID))
	_, err := repo.GetByID(ctx, p.ID)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(repo.SoftDelete(ctx, p.ID)))

	_, err = repo.IncrementLikes(ctx, p.ID)
	assert.True(t, IsNotFound(err))
}

func TestLikeRepository_CreateAndDelete(t *testing.T) {
	db := setupSQLite(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	p := seedPosts(t, db, 1)[0]
	hash := models.HashVisitor("visitor-1")

	like, err := repo.Create(ctx, p.ID, hash)
	require.NoError(t, err)
	assert.NotZero(t, like.ID)

	_, err = repo.Create(ctx, p.ID, hash)
	assert.ErrorIs(t, err, ErrDuplicateLike)

	ok, err := repo.Exists(ctx, p.ID, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, p.ID, hash))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, hash), ErrLikeNotFound)
}

func TestLikeRepository_Transactional(t *testing.T) {
	db := setupSQLite(t)
	repo := NewLikeRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()
	p := seedPosts(t, db, 1)[0]
	hash := models.HashVisitor("visitor-2")

	n, err := repo.LikeTx(ctx, p.ID, hash)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a duplicate rolls back without touching the counter
	_, err = repo.LikeTx(ctx, p.ID, hash)
	assert.ErrorIs(t, err, ErrDuplicateLike)
	got, err := posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)

	n, err = repo.UnlikeTx(ctx, p.ID, hash)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = repo.UnlikeTx(ctx, p.ID, hash)
	assert.ErrorIs(t, err, ErrLikeNotFound)

	_, err = repo.LikeTx(ctx, 9999, hash)
	assert.True(t, IsNotFound(err))
}

func TestCommentRepository_ListByPostAscending(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	p := seedPosts(t, db, 2)

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	inserts := []struct {
		content string
		minute  time.Duration
	}{{"third", 3}, {"first", 1}, {"second", 2}}
	for _, in := range inserts {
		require.NoError(t, repo.Create(ctx, &models.Comment{
			PostID:     p[0].ID,
			PosterName: models.AnonymousName,
			Content:    in.content,
			CreatedAt:  base.Add(in.minute * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: p[1].ID, PosterName: "tama", Content: "other"}))

	got, err := repo.ListByPost(ctx, p[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)

	none, err := repo.ListByPost(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: likes.post_id, likes.visitor_hash")))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
