// Package repository implements the data access layer for both stores.
package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users in the main store.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	LockByID(ctx context.Context, id uint, mode LockMode) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	CountAdmins(ctx context.Context) (int64, error)
	ListCreatedBefore(ctx context.Context, before time.Time, afterID uint, limit int) ([]models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.UserSearchResult, error)
}

type userRepository struct {
	store *database.Store
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(store *database.Store) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.LockByID(ctx, id, NoLock)
}

func (r *userRepository) LockByID(ctx context.Context, id uint, mode LockMode) (*models.User, error) {
	var user models.User
	if err := withLock(r.store.Conn(ctx), mode).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FindByIdentifier matches either the username or the email. It returns nil, nil when no user matches.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.store.Conn(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) ([]models.User, error) {
	var users []models.User
	if err := r.store.Conn(ctx).
		Where("username = ? OR email = ?", username, email).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.store.Conn(ctx).Omit("Profile").Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.store.Conn(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	res := r.store.Conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.store.Conn(ctx).
		Order("id").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.store.Conn(ctx).Where("is_admin = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := r.store.Conn(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// ListCreatedBefore pages through users created before a cutoff, in ID order.
func (r *userRepository) ListCreatedBefore(ctx context.Context, before time.Time, afterID uint, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.store.Conn(ctx).
		Where("created_at < ? AND id > ?", before, afterID).
		Order("id").
		Limit(clampLimit(limit, 100, 1000)).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Search matches usernames by case-insensitive substring, most followed first.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.UserSearchResult, error) {
	var results []models.UserSearchResult
	err := r.store.Conn(ctx).Raw(`
SELECT u.id, u.username, COALESCE(p.avatar_url, '') AS avatar_url,
	(SELECT COUNT(*) FROM follows f WHERE f.followed_id = u.id) AS follower_count
FROM users u
LEFT JOIN profiles p ON p.user_id = u.id
WHERE LOWER(u.username) LIKE ? ESCAPE '\'
ORDER BY follower_count DESC, u.username ASC
LIMIT ?`, likePattern(query), clampLimit(limit, 20, 50)).Scan(&results).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return results, nil
}
