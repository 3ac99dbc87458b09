package repository

import (
	"context"
	"errors"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
)

// CredentialRepository persists password hashes in the auth store.
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByUserID(ctx context.Context, userID uint) (*models.Credential, error)
	Delete(ctx context.Context, userID uint) error
	ExistingUserIDs(ctx context.Context, userIDs []uint) (map[uint]bool, error)
}

type credentialRepository struct {
	store *database.Store
}

// NewCredentialRepository returns a CredentialRepository over the auth store.
func NewCredentialRepository(store *database.Store) CredentialRepository {
	return &credentialRepository{store: store}
}

func (r *credentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if err := r.store.Conn(ctx).Create(cred).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Credential already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByUserID returns nil, nil when no credential exists for the user.
func (r *credentialRepository) GetByUserID(ctx context.Context, userID uint) (*models.Credential, error) {
	var cred models.Credential
	if err := r.store.Conn(ctx).Where("user_id = ?", userID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &cred, nil
}

func (r *credentialRepository) Delete(ctx context.Context, userID uint) error {
	if err := r.store.Conn(ctx).Where("user_id = ?", userID).Delete(&models.Credential{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ExistingUserIDs reports which of userIDs have a credential row.
func (r *credentialRepository) ExistingUserIDs(ctx context.Context, userIDs []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(userIDs))
	if len(userIDs) == 0 {
		return found, nil
	}
	var ids []uint
	if err := r.store.Conn(ctx).Model(&models.Credential{}).
		Where("user_id IN ?", userIDs).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}
