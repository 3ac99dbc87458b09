package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

type PostService struct {
	tx    Transactor
	posts repository.PostRepository
	users repository.UserRepository
}

type CreatePostInput struct {
	UserID  uint
	Content string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(tx Transactor, posts repository.PostRepository, users repository.UserRepository) *PostService {
	return &PostService{tx: tx, posts: posts, users: users}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validation.ValidateContent("Content", in.Content, validation.MaxPostLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{UserID: in.UserID, Content: in.Content}
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.LockByID(ctx, in.UserID, repository.LockForShare); err != nil {
			return err
		}
		return s.posts.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.posts.List(ctx, limit, offset)
}

func (s *PostService) ListUserPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.posts.ListByUser(ctx, userID, limit, offset)
}

// UpdatePost replaces the content of a post. Only its author may do so.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validation.ValidateContent("Content", in.Content, validation.MaxPostLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		post, actor, err := s.lockForMutation(ctx, in.PostID, in.UserID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, post, ActionEdit); err != nil {
			return err
		}
		return s.posts.UpdateContent(ctx, post.ID, in.Content)
	})
	if err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, in.PostID)
}

// DeletePost removes a post. The author or any admin may do so.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		post, actor, err := s.lockForMutation(ctx, in.PostID, in.UserID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, post, ActionDelete); err != nil {
			return err
		}
		return s.posts.Delete(ctx, post.ID)
	})
}

// lockForMutation locks the post for update and the actor for share, in
// that order, so the ownership decision holds until the write commits.
func (s *PostService) lockForMutation(ctx context.Context, postID, actorID uint) (*models.Post, *models.User, error) {
	post, err := s.posts.LockByID(ctx, postID, repository.LockForUpdate)
	if err != nil {
		return nil, nil, err
	}
	actor, err := s.users.LockByID(ctx, actorID, repository.LockForShare)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil, models.NewForbiddenError("You are not allowed to modify this post")
		}
		return nil, nil, err
	}
	return post, actor, nil
}
