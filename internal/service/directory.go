package service

import (
	"context"
	"strings"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

// UserDirectory answers read queries about users, their admin flag and their
// profile, and owns the profile update.
type UserDirectory struct {
	tx       Transactor
	users    repository.UserRepository
	profiles repository.ProfileRepository
	cache    *cache.Cache
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	UserID    uint
	Bio       string
	Location  string
	Website   string
	AvatarURL string
}

// NewUserDirectory returns a UserDirectory. profileCache may be nil.
func NewUserDirectory(tx Transactor, users repository.UserRepository, profiles repository.ProfileRepository, profileCache *cache.Cache) *UserDirectory {
	return &UserDirectory{
		tx:       tx,
		users:    users,
		profiles: profiles,
		cache:    profileCache,
	}
}

func (d *UserDirectory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return d.users.GetByID(ctx, id)
}

// GetProfile returns the user with profile and follow counts, served from
// the cache when possible.
func (d *UserDirectory) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	var out models.UserProfile
	err := d.cache.Aside(ctx, cache.ProfileKey(id), &out, cache.ProfileTTL, func() error {
		user, err := d.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		profile, err := d.profiles.GetByUserID(ctx, id)
		if err != nil {
			return err
		}
		if profile == nil {
			profile = &models.Profile{UserID: id}
		}
		followers, following, err := d.profiles.FollowCounts(ctx, id)
		if err != nil {
			return err
		}
		out = models.UserProfile{
			User:           *user,
			Profile:        *profile,
			FollowerCount:  followers,
			FollowingCount: following,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByIdentifier returns nil, nil when neither a username nor an email matches.
func (d *UserDirectory) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return d.users.FindByIdentifier(ctx, strings.TrimSpace(identifier))
}

func (d *UserDirectory) IsAdmin(ctx context.Context, id uint) (bool, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (d *UserDirectory) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return d.users.Search(ctx, query, limit)
}

func (d *UserDirectory) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return d.users.List(ctx, limit, offset)
}

// UpdateProfile replaces the editable fields of the user's own profile.
func (d *UserDirectory) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if err := validation.ValidateProfile(in.Bio, in.Location, in.Website, in.AvatarURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	profile := &models.Profile{
		UserID:    in.UserID,
		Bio:       in.Bio,
		Location:  in.Location,
		Website:   in.Website,
		AvatarURL: in.AvatarURL,
	}
	err := d.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := d.users.LockByID(ctx, in.UserID, repository.LockForShare); err != nil {
			return err
		}
		return d.profiles.Upsert(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	d.cache.InvalidateProfiles(ctx, in.UserID)
	return profile, nil
}
