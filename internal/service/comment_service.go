package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

// CommentService manages comments on posts.
type CommentService struct {
	tx       Transactor
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

// NewCommentService creates a new CommentService.
func NewCommentService(tx Transactor, comments repository.CommentRepository, posts repository.PostRepository, users repository.UserRepository) *CommentService {
	return &CommentService{tx: tx, comments: comments, posts: posts, users: users}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validation.ValidateContent("Comment", in.Content, validation.MaxCommentLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{PostID: in.PostID, UserID: in.UserID, Content: in.Content}
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.posts.LockByID(ctx, in.PostID, repository.LockForShare); err != nil {
			return err
		}
		return s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, comment.ID)
}

// ListComments returns the comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return s.comments.ListByPost(ctx, postID, limit, offset)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validation.ValidateContent("Comment", in.Content, validation.MaxCommentLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		comment, actor, err := s.lockForMutation(ctx, in.PostID, in.CommentID, in.UserID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, comment, ActionEdit); err != nil {
			return err
		}
		return s.comments.UpdateContent(ctx, comment.ID, in.Content)
	})
	if err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, in.CommentID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		comment, actor, err := s.lockForMutation(ctx, in.PostID, in.CommentID, in.UserID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, comment, ActionDelete); err != nil {
			return err
		}
		return s.comments.Delete(ctx, comment.ID)
	})
}

func (s *CommentService) lockForMutation(ctx context.Context, postID, commentID, actorID uint) (*models.Comment, *models.User, error) {
	comment, err := s.comments.LockByID(ctx, commentID, repository.LockForUpdate)
	if err != nil {
		return nil, nil, err
	}
	if postID != 0 && comment.PostID != postID {
		return nil, nil, models.NewNotFoundError("Comment", commentID)
	}
	actor, err := s.users.LockByID(ctx, actorID, repository.LockForShare)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil, models.NewForbiddenError("You are not allowed to modify this comment")
		}
		return nil, nil, err
	}
	return comment, actor, nil
}
