package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
// @Summary List comments on a post
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parsePagination(c, 50)
	comments, err := s.commentSvc.ListComments(c.UserContext(), postID, page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := s.commentSvc.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  currentUserID(c),
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/posts/:id/comments/:commentId
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/comments/{commentId} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := s.commentSvc.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		PostID:    postID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return err
	}
	if err := s.commentSvc.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		PostID:    postID,
		CommentID: commentID,
	}); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
