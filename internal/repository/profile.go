package repository

import (
	"context"
	"errors"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists the 1:1 profile row of a user.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	FollowCounts(ctx context.Context, userID uint) (followers, following int64, err error)
}

type profileRepository struct {
	store *database.Store
}

// NewProfileRepository returns a ProfileRepository over the main store.
func NewProfileRepository(store *database.Store) ProfileRepository {
	return &profileRepository{store: store}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.store.Conn(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Profile already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByUserID returns nil, nil when the user has no profile row.
func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.store.Conn(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

// Upsert inserts the profile or overwrites the editable fields of the existing row.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	err := r.store.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bio", "location", "website", "avatar_url"}),
	}).Create(profile).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("User", profile.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) FollowCounts(ctx context.Context, userID uint) (int64, int64, error) {
	var counts struct {
		Followers int64
		Following int64
	}
	err := r.store.Conn(ctx).Raw(`
SELECT
	(SELECT COUNT(*) FROM follows WHERE followed_id = ?) AS followers,
	(SELECT COUNT(*) FROM follows WHERE follower_id = ?) AS following`, userID, userID).
		Scan(&counts).Error
	if err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return counts.Followers, counts.Following, nil
}
