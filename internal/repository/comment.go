package repository

import (
	"context"
	"errors"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	LockByID(ctx context.Context, id uint, mode LockMode) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	store *database.Store
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(store *database.Store) CommentRepository {
	return &commentRepository{store: store}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.store.Conn(ctx).Omit("User", "Post").Create(comment).Error; err != nil {
		if isForeignKeyViolation(err) {
			return missingReference(ctx, r.store,
				reference{"User", &models.User{}, comment.UserID},
				reference{"Post", &models.Post{}, comment.PostID})
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.store.Conn(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) LockByID(ctx context.Context, id uint, mode LockMode) (*models.Comment, error) {
	var comment models.Comment
	if err := withLock(r.store.Conn(ctx), mode).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns comments oldest first with their authors.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.store.Conn(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Limit(clampLimit(limit, 50, 200)).
		Offset(offset).
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.store.Conn(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.store.Conn(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
