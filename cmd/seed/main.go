// Command seed fills the stores with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"agora/internal/auth"
	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	maxLikes := flag.Int("likes", 10, "Max likes per post")
	follows := flag.Int("follows", 5, "Follows per user")
	comments := flag.Int("comments", 1, "Comments per post")
	shouldClean := flag.Bool("clean", true, "Clean both stores before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production environment")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	s := seed.NewSeeder(rt.Stores, auth.NewBcryptHasher(cfg.BcryptCost), seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		MaxLikesPerPost: *maxLikes,
		FollowsPerUser:  *follows,
		CommentsPerPost: *comments,
		Seed:            *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("All test users have the password: %s", seed.DefaultPassword)
}
