// Package seed fills the stores with demo data for development. Users go
// through the registrar so both stores stay consistent, and likes and
// follows go through the toggle engine.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"agora/internal/auth"
	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password every seeded user gets.
const DefaultPassword = "Agora$eedPass1"

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	MaxLikesPerPost int
	FollowsPerUser  int
	CommentsPerPost int
	// MaxDays spreads post creation times over this many days back.
	MaxDays  int
	Password string
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed int64
}

func (o Options) withDefaults() Options {
	if o.MaxLikesPerPost <= 0 {
		o.MaxLikesPerPost = 10
	}
	if o.FollowsPerUser <= 0 {
		o.FollowsPerUser = 5
	}
	if o.CommentsPerPost < 0 {
		o.CommentsPerPost = 0
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 30
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	return o
}

// Result summarizes a seeding run.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Likes    int
	Follows  int
	Comments int
}

// Seeder writes demo data through the same services the API uses.
type Seeder struct {
	stores *database.Stores
	opts   Options
	faker  *gofakeit.Faker
	now    func() time.Time

	registrar    *service.IdentityRegistrar
	directory    *service.UserDirectory
	interactions *service.ToggleInteractionEngine
	comments     *service.CommentService
	posts        repository.PostRepository
}

// NewSeeder builds a Seeder over both stores.
func NewSeeder(stores *database.Stores, hasher auth.PasswordHasher, opts Options) *Seeder {
	users := repository.NewUserRepository(stores.Main)
	profiles := repository.NewProfileRepository(stores.Main)
	posts := repository.NewPostRepository(stores.Main)
	credentials := repository.NewCredentialRepository(stores.Auth)

	return &Seeder{
		stores: stores,
		opts:   opts.withDefaults(),
		faker:  gofakeit.New(opts.Seed),
		now:    time.Now,

		registrar: service.NewIdentityRegistrar(stores.Main, stores.Auth, users, profiles, credentials, hasher, 0),
		directory: service.NewUserDirectory(stores.Main, users, profiles, nil),
		interactions: service.NewToggleInteractionEngine(stores.Main, users, posts,
			repository.NewLikeRepository(stores.Main), repository.NewFollowRepository(stores.Main), nil),
		comments: service.NewCommentService(stores.Main, repository.NewCommentRepository(stores.Main), posts, users),
		posts:    posts,
	}
}

// Run seeds users, then posts, then engagement between them.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	observability.Logger.Info("Starting database seeding",
		slog.Int("users", s.opts.NumUsers), slog.Int("posts", s.opts.NumPosts))

	users, err := s.SeedUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	posts, err := s.SeedPosts(ctx, users, s.opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}

	result := &Result{Users: users, Posts: posts}
	if err := s.SeedEngagement(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}

	observability.Logger.Info("Seeding complete",
		slog.Int("users", len(result.Users)),
		slog.Int("posts", len(result.Posts)),
		slog.Int("likes", result.Likes),
		slog.Int("follows", result.Follows),
		slog.Int("comments", result.Comments),
	)
	return result, nil
}

// ClearAll removes every row from both stores, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	observability.Logger.Info("Clearing existing data")
	err := s.stores.Main.Transaction(ctx, func(ctx context.Context) error {
		db := s.stores.Main.Conn(ctx)
		for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Comment{}, &models.Post{}, &models.Profile{}, &models.User{}} {
			if err := db.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear main store: %w", err)
	}
	if err := s.stores.Auth.Conn(ctx).Where("1 = 1").Delete(&models.Credential{}).Error; err != nil {
		return fmt.Errorf("clear auth store: %w", err)
	}
	return nil
}

var usernameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// username derives a valid, likely-unique username from the faker.
func (s *Seeder) username() string {
	base := usernameUnsafe.ReplaceAllString(strings.ToLower(s.faker.Username()), "")
	base = strings.TrimLeft(base, "_-")
	if len(base) > 40 {
		base = base[:40]
	}
	if len(base) < 2 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, s.faker.Number(1000, 9999))
}

// SeedUsers registers n users with filled-in profiles. A username collision
// is retried with a fresh name.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for len(users) < n {
		username := s.username()
		user, err := s.registrar.Register(ctx, service.RegisterInput{
			Username: username,
			Email:    username + "@" + s.faker.DomainName(),
			Password: s.opts.Password,
		})
		if models.HasCode(err, models.CodeConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, err := s.directory.UpdateProfile(ctx, service.UpdateProfileInput{
			UserID:    user.ID,
			Bio:       s.faker.Sentence(10),
			Location:  s.faker.City(),
			Website:   s.faker.URL(),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		}); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedPosts creates n posts by random authors with creation times spread
// over the last MaxDays days.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, n int) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		back := time.Duration(s.faker.Number(0, s.opts.MaxDays*24*60)) * time.Minute
		created := s.now().Add(-back)
		post := &models.Post{
			UserID:    author.ID,
			Content:   s.faker.Paragraph(1, 3, 12, "\n"),
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// SeedEngagement adds follows, likes and comments between the seeded users
// and posts. Every edge is switched on at most once so the toggles never
// undo each other.
func (s *Seeder) SeedEngagement(ctx context.Context, result *Result) error {
	users := result.Users
	if len(users) < 2 {
		return nil
	}

	for _, follower := range users {
		for _, followed := range s.pick(users, s.opts.FollowsPerUser) {
			if followed.ID == follower.ID {
				continue
			}
			if _, err := s.interactions.ToggleFollow(ctx, follower.ID, followed.ID); err != nil {
				return err
			}
			result.Follows++
		}
	}

	for _, post := range result.Posts {
		likers := s.pick(users, s.faker.Number(0, s.opts.MaxLikesPerPost))
		for _, liker := range likers {
			if _, err := s.interactions.ToggleLike(ctx, liker.ID, post.ID); err != nil {
				return err
			}
			result.Likes++
		}
		for i := 0; i < s.opts.CommentsPerPost; i++ {
			commenter := users[s.faker.Number(0, len(users)-1)]
			if _, err := s.comments.CreateComment(ctx, service.CreateCommentInput{
				UserID:  commenter.ID,
				PostID:  post.ID,
				Content: s.faker.Sentence(8),
			}); err != nil {
				return err
			}
			result.Comments++
		}
	}
	return nil
}

// pick returns up to k distinct users in random order.
func (s *Seeder) pick(users []*models.User, k int) []*models.User {
	if k > len(users) {
		k = len(users)
	}
	shuffled := make([]*models.User, len(users))
	copy(shuffled, users)
	s.faker.ShuffleAnySlice(shuffled)
	return shuffled[:k]
}
