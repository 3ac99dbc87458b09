// Package server exposes the services over HTTP with Fiber.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "agora/docs" // swagger docs
	"agora/internal/audit"
	"agora/internal/auth"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/featureflags"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	stores         *database.Stores
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *auth.TokenIssuer
	featureFlags   *featureflags.Manager

	directory     *service.UserDirectory
	registrar     *service.IdentityRegistrar
	authenticator *service.AuthenticationVerifier
	interactions  *service.ToggleInteractionEngine
	admin         *service.AdminPrivilegeManager
	feed          *service.FeedRanker
	postService   *service.PostService
	commentSvc    *service.CommentService
}

// NewServer wires repositories and services over already-open stores.
// redisClient may be nil; caching, rate limiting and token revocation
// are then disabled.
func NewServer(cfg *config.Config, stores *database.Stores, redisClient *redis.Client, sink audit.Sink) *Server {
	users := repository.NewUserRepository(stores.Main)
	profiles := repository.NewProfileRepository(stores.Main)
	posts := repository.NewPostRepository(stores.Main)
	comments := repository.NewCommentRepository(stores.Main)
	likes := repository.NewLikeRepository(stores.Main)
	follows := repository.NewFollowRepository(stores.Main)
	credentials := repository.NewCredentialRepository(stores.Auth)

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	profileCache := cache.New(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	return &Server{
		config:         cfg,
		stores:         stores,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("agora-api"),
		tokens:         auth.NewTokenIssuer(cfg.JWTSecret, auth.DefaultTokenTTL, redisClient),
		featureFlags:   flags,

		directory:     service.NewUserDirectory(stores.Main, users, profiles, profileCache),
		registrar:     service.NewIdentityRegistrar(stores.Main, stores.Auth, users, profiles, credentials, hasher, cfg.OrphanGrace()),
		authenticator: service.NewAuthenticationVerifier(users, credentials, hasher),
		interactions:  service.NewToggleInteractionEngine(stores.Main, users, posts, likes, follows, profileCache),
		admin:         service.NewAdminPrivilegeManager(stores.Main, users, sink, flags),
		feed:          service.NewFeedRanker(repository.NewFeedRepository(stores.Main)),
		postService:   service.NewPostService(stores.Main, posts, users),
		commentSvc:    service.NewCommentService(stores.Main, comments, posts, users),
	}
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Agora API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders every error a handler returns. AppErrors keep their
// code; anything else is logged and answered as an opaque 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	if models.StatusFor(err) == fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	return models.Respond(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Metrics sit outside RenderErrors so they count the rendered status.
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.RenderErrors())

	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.Respond(c, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthRequired(s.tokens)
	optionalAuth := middleware.OptionalAuth(s.tokens)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, middleware.RegisterLimit), s.Register)
	authGroup.Post("/signup", middleware.RateLimit(s.redis, middleware.RegisterLimit), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, middleware.LoginLimit), s.Login)
	authGroup.Post("/logout", authRequired, s.Logout)

	api.Get("/feed", optionalAuth, s.GetFeed)

	// Public post reads
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/comments", s.GetComments)
	posts.Get("/:id/likes", s.GetLikes)
	posts.Get("/:id", s.GetPost)

	// Post writes
	posts.Post("/", authRequired, middleware.RateLimit(s.redis, middleware.CreatePostLimit), s.CreatePost)
	posts.Post("/:id/like", authRequired, middleware.RateLimit(s.redis, middleware.ToggleLimit), s.ToggleLike)
	posts.Post("/:id/comments", authRequired, middleware.RateLimit(s.redis, middleware.CreateCommentLimit), s.CreateComment)
	posts.Put("/:id/comments/:commentId", authRequired, s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", authRequired, s.DeleteComment)
	posts.Put("/:id", authRequired, s.UpdatePost)
	posts.Delete("/:id", authRequired, s.DeletePost)

	users := api.Group("/users")
	users.Get("/me", authRequired, s.GetMyProfile)
	users.Put("/me", authRequired, s.UpdateMyProfile)
	users.Get("/search", middleware.RateLimit(s.redis, middleware.SearchLimit), s.SearchUsers)
	users.Get("/", s.GetAllUsers)
	// Specific /:id/:resource routes before the generic /:id route
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", authRequired, middleware.RateLimit(s.redis, middleware.ToggleLimit), s.ToggleFollow)
	users.Get("/:id", s.GetUserProfile)

	admin := api.Group("/admin", authRequired, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/admins", s.ListAdmins)
	admin.Post("/users/:id/toggle-admin", s.ToggleAdmin)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings both stores and Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	check := func(ping func(context.Context) error) string {
		if err := ping(ctx); err != nil {
			return "unhealthy"
		}
		return "healthy"
	}
	mainStatus := check(s.stores.Main.Ping)
	authStatus := check(s.stores.Auth.Ping)

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = check(func(ctx context.Context) error { return s.redis.Ping(ctx).Err() })
	}

	// Redis is optional: without it the API degrades but still serves.
	status := fiber.StatusOK
	overall := "healthy"
	if mainStatus != "healthy" || authStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"main_store": mainStatus,
			"auth_store": authStatus,
			"redis":      redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := middleware.UserID(c)
		admin, err := s.directory.IsAdmin(c.UserContext(), userID)
		if err != nil && !models.HasCode(err, models.CodeNotFound) {
			return models.Respond(c, err)
		}
		if !admin {
			return models.Respond(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	observability.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests. The stores and Redis belong to the
// caller and stay open.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	observability.Logger.Info("Server shutdown complete")
	return nil
}
