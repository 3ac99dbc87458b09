package server

import (
	"context"
	"errors"
	"time"

	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users/search?q=...
// @Summary Search users
// @Description Username substring match ranked by follower count
// @Tags users
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Limit"
// @Success 200 {array} models.UserSearchResult
// @Failure 400 {object} models.ErrorResponse
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	page := parsePagination(c, 20)
	users, err := s.directory.SearchUsers(ctx, c.Query("q"), page.Limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetAllUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	page := parsePagination(c, 100)
	users, err := s.directory.ListUsers(ctx, page.Limit, page.Offset)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "Request timeout",
			})
		}
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	profile, err := s.directory.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/users/me
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.directory.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update the current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{bio=string,location=string,website=string,avatar_url=string} true "Profile"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Bio       string `json:"bio"`
		Location  string `json:"location"`
		Website   string `json:"website"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	profile, err := s.directory.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    currentUserID(c),
		Bio:       req.Bio,
		Location:  req.Location,
		Website:   req.Website,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary Posts by a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Post
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parsePagination(c, 20)
	posts, err := s.postService.ListUserPosts(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{active=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := s.interactions.ToggleFollow(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(result)
}

// GetFollowing handles GET /api/users/:id/following
// @Summary Users followed by a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.FollowedUser
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parsePagination(c, 50)
	following, err := s.interactions.ListFollowing(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(following)
}
