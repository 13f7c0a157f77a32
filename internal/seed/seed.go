// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"embed"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"nekozukan/internal/middleware"
	"nekozukan/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/demo.yml
var fixtures embed.FS

// Options configuration for the seeder
type Options struct {
	NumPosts    int
	MaxLikes    int
	MaxComments int
	MaxDays     int
	ShouldClean bool
}

// Fixture is the YAML shape of a hand-written seed file.
type Fixture struct {
	Posts []FixturePost `yaml:"posts"`
}

type FixturePost struct {
	CatName     string           `yaml:"cat_name"`
	PosterName  string           `yaml:"poster_name"`
	ImageURL    string           `yaml:"image_url"`
	Description string           `yaml:"description"`
	Tags        []string         `yaml:"tags"`
	Likes       int              `yaml:"likes"`
	Comments    []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	PosterName string `yaml:"poster_name"`
	Content    string `yaml:"content"`
}

var catTags = []string{
	"三毛猫", "黒猫", "白猫", "茶トラ", "サバトラ", "キジトラ", "子猫", "寝顔",
	"sleepy", "loaf", "zoomies", "box", "window", "kitten", "tabby", "calico",
}

// Seeder writes demo data.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// ClearAll removes every like, comment and post.
func (s *Seeder) ClearAll() error {
	for _, m := range []any{&models.Like{}, &models.Comment{}, &models.Post{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// Run seeds random posts according to opts.
func (s *Seeder) Run(opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	for i := 0; i < opts.NumPosts; i++ {
		fp := FixturePost{
			CatName:    gofakeit.PetName(),
			PosterName: s.maybe(gofakeit.FirstName),
			ImageURL:   fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
			Tags:       s.tags(),
		}
		if s.rng.Intn(3) > 0 {
			fp.Description = gofakeit.Sentence(8)
		}
		if opts.MaxLikes > 0 {
			fp.Likes = s.rng.Intn(opts.MaxLikes + 1)
		}
		if opts.MaxComments > 0 {
			for j := s.rng.Intn(opts.MaxComments + 1); j > 0; j-- {
				fp.Comments = append(fp.Comments, FixtureComment{
					PosterName: s.maybe(gofakeit.Username),
					Content:    gofakeit.Sentence(6),
				})
			}
		}
		created := time.Now().Add(-time.Duration(s.rng.Intn(opts.MaxDays*24*60)) * time.Minute)
		if _, err := s.insert(fp, created); err != nil {
			return err
		}
	}
	middleware.Logger.Info("seeded random posts", "count", opts.NumPosts)
	return nil
}

// LoadFixture reads a YAML fixture from disk, or the built-in demo set when path is empty.
func LoadFixture(path string) (*Fixture, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = fixtures.ReadFile("fixtures/demo.yml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// ApplyFixture inserts every post in f. Earlier entries get older timestamps so
// the feed shows the fixture in file order reversed, like real uploads.
func (s *Seeder) ApplyFixture(f *Fixture) ([]*models.Post, error) {
	base := time.Now().Add(-time.Duration(len(f.Posts)) * time.Hour)
	out := make([]*models.Post, 0, len(f.Posts))
	for i, fp := range f.Posts {
		p, err := s.insert(fp, base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Demo applies the built-in fixture if the posts table is empty.
func Demo(db *gorm.DB) error {
	var n int64
	if err := db.Model(&models.Post{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	f, err := LoadFixture("")
	if err != nil {
		return err
	}
	_, err = NewSeeder(db).ApplyFixture(f)
	return err
}

// insert writes a post with its likes and comments. The counter is set from
// the number of like rows so the two never disagree.
func (s *Seeder) insert(fp FixturePost, created time.Time) (*models.Post, error) {
	post := &models.Post{
		ImageURL:   fp.ImageURL,
		CatName:    fp.CatName,
		PosterName: models.DisplayName(fp.PosterName),
		Tags:       models.StringList(fp.Tags),
		LikesCount: fp.Likes,
		CreatedAt:  created,
	}
	if d := strings.TrimSpace(fp.Description); d != "" {
		post.Description = &d
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		for i := 0; i < fp.Likes; i++ {
			like := &models.Like{PostID: post.ID, VisitorHash: models.HashVisitor(uuid.NewString())}
			if err := tx.Create(like).Error; err != nil {
				return err
			}
		}
		for i, fc := range fp.Comments {
			c := &models.Comment{
				PostID:     post.ID,
				PosterName: models.DisplayName(fc.PosterName),
				Content:    fc.Content,
				CreatedAt:  created.Add(time.Duration(i+1) * time.Minute),
			}
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed post %q: %w", fp.CatName, err)
	}
	return post, nil
}

func (s *Seeder) tags() []string {
	n := s.rng.Intn(4)
	seen := map[string]bool{}
	var out []string
	for len(out) < n {
		t := catTags[s.rng.Intn(len(catTags))]
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// maybe returns gen() most of the time and "" otherwise, for anonymous entries.
func (s *Seeder) maybe(gen func() string) string {
	if s.rng.Intn(4) == 0 {
		return ""
	}
	return gen()
}
