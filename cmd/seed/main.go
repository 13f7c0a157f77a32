// Command seed populates the database with demo cat posts.
package main

import (
	"flag"
	"log"

	"nekozukan/internal/config"
	"nekozukan/internal/database"
	"nekozukan/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numPosts := flag.Int("posts", 40, "Number of random posts to create")
	maxLikes := flag.Int("max-likes", 20, "Upper bound of likes per random post")
	maxComments := flag.Int("max-comments", 5, "Upper bound of comments per random post")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	fixture := flag.String("fixture", "", "YAML fixture to load instead of random posts (\"builtin\" for the demo set)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *fixture != "" {
		if *shouldClean {
			if err := s.ClearAll(); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		path := *fixture
		if path == "builtin" {
			path = ""
		}
		f, err := seed.LoadFixture(path)
		if err != nil {
			log.Fatalf("Fixture load failed: %v", err)
		}
		posts, err := s.ApplyFixture(f)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("Seeded %d fixture posts", len(posts))
		return
	}

	if err := s.Run(seed.Options{
		NumPosts:    *numPosts,
		MaxLikes:    *maxLikes,
		MaxComments: *maxComments,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Done.")
}
