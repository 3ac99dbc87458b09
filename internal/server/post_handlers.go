package server

import (
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

type contentRequest struct {
	Content string `json:"content"`
}

// GetFeed handles GET /api/feed
// @Summary Ranked feed
// @Description Posts ranked by followed authors, likes and recency. Anonymous viewers get popularity order.
// @Tags posts
// @Produce json
// @Param limit query int false "Max results (1-100)"
// @Success 200 {array} models.PostSummary
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	viewerID, _ := middleware.UserID(c)
	limit := c.QueryInt("limit", service.DefaultFeedLimit)

	feed, err := s.feed.ComputeFeed(c.UserContext(), viewerID, limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(feed)
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Tags posts
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  currentUserID(c),
		Content: req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post
// @Description Only the author may edit a post.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{content=string} true "Post"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  id,
		Content: req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description The author or an admin may delete a post.
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: id,
	}); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{active=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := s.interactions.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(result)
}

// GetLikes handles GET /api/posts/:id/likes
// @Summary Users who liked a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Liker
// @Router /posts/{id}/likes [get]
func (s *Server) GetLikes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parsePagination(c, 50)
	likers, err := s.interactions.ListLikes(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(likers)
}
