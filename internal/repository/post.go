package repository

import (
	"context"
	"errors"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	LockByID(ctx context.Context, id uint, mode LockMode) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	store *database.Store
}

// NewPostRepository creates a new post repository
func NewPostRepository(store *database.Store) PostRepository {
	return &postRepository{store: store}
}

const postCountsSelect = `posts.*,
	(SELECT COUNT(DISTINCT likes.user_id) FROM likes WHERE likes.post_id = posts.id) AS likes_count,
	(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count`

func (r *postRepository) withCounts(ctx context.Context) *gorm.DB {
	return r.store.Conn(ctx).Model(&models.Post{}).Select(postCountsSelect).Preload("User")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.store.Conn(ctx).Omit("User").Create(post).Error; err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("User", post.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withCounts(ctx).Where("posts.id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// LockByID reads the bare row, optionally locking it for the rest of the transaction.
func (r *postRepository) LockByID(ctx context.Context, id uint, mode LockMode) (*models.Post, error) {
	var post models.Post
	if err := withLock(r.store.Conn(ctx), mode).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.store.Conn(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.withCounts(ctx).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.withCounts(ctx).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.store.Conn(ctx).Model(&models.Post{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.store.Conn(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
