package seed

import (
	"os"
	"path/filepath"
	"testing"

	"nekozukan/internal/database"
	"nekozukan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture_BuiltIn(t *testing.T) {
	f, err := LoadFixture("")
	require.NoError(t, err)
	require.NotEmpty(t, f.Posts)
	assert.Equal(t, "たま", f.Posts[0].CatName)
}

func TestDemo_OnlyOnEmptyDatabase(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)

	require.NoError(t, Demo(db))
	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 3, posts)

	require.NoError(t, Demo(db))
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 3, posts)

	var tama models.Post
	require.NoError(t, db.Where("cat_name = ?", "たま").First(&tama).Error)
	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", tama.ID).Count(&likes).Error)
	assert.EqualValues(t, tama.LikesCount, likes)
}

func TestSeeder_RunAndClear(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	s := NewSeeder(db)

	require.NoError(t, s.Run(Options{NumPosts: 8, MaxLikes: 4, MaxComments: 3}))

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 8)
	for _, p := range posts {
		var likes int64
		require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes).Error)
		assert.EqualValues(t, p.LikesCount, likes, p.CatName)
		assert.NotEmpty(t, p.PosterName)
	}

	require.NoError(t, s.ClearAll())
	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLoadFixture_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.yml")
	require.NoError(t, os.WriteFile(path, []byte("posts:\n  - cat_name: Sora\n    image_url: https://x.test/a.jpg\n    likes: 1\n"), 0o600))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f.Posts, 1)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	posts, err := NewSeeder(db).ApplyFixture(f)
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousName, posts[0].PosterName)
	assert.Equal(t, 1, posts[0].LikesCount)
}
