package repository

import (
	"context"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/gorm/clause"
)

// LikeRepository manages like edges between users and posts.
type LikeRepository interface {
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	// Insert creates the edge unless it already exists. created is false when
	// another writer got there first.
	Insert(ctx context.Context, userID, postID uint) (created bool, err error)
	Delete(ctx context.Context, userID, postID uint) (deleted bool, err error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Liker, error)
}

// FollowRepository manages directed follow edges.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	Insert(ctx context.Context, followerID, followedID uint) (created bool, err error)
	Delete(ctx context.Context, followerID, followedID uint) (deleted bool, err error)
	ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.FollowedUser, error)
}

type likeRepository struct {
	store *database.Store
}

// NewLikeRepository creates a LikeRepository on the main store.
func NewLikeRepository(store *database.Store) LikeRepository {
	return &likeRepository{store: store}
}

func (r *likeRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var n int64
	err := r.store.Conn(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *likeRepository) Insert(ctx context.Context, userID, postID uint) (bool, error) {
	like := models.Like{UserID: userID, PostID: postID}
	res := r.store.Conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Omit("User", "Post").
		Create(&like)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		if isForeignKeyViolation(res.Error) {
			return false, missingReference(ctx, r.store,
				reference{"User", &models.User{}, userID},
				reference{"Post", &models.Post{}, postID})
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.store.Conn(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Liker, error) {
	var likers []models.Liker
	err := r.store.Conn(ctx).
		Table("likes").
		Select("likes.user_id, users.username, likes.created_at").
		Joins("JOIN users ON users.id = likes.user_id").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC, likes.user_id DESC").
		Limit(clampLimit(limit, 50, 200)).
		Offset(offset).
		Scan(&likers).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likers, nil
}

type followRepository struct {
	store *database.Store
}

// NewFollowRepository creates a FollowRepository on the main store.
func NewFollowRepository(store *database.Store) FollowRepository {
	return &followRepository{store: store}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var n int64
	err := r.store.Conn(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *followRepository) Insert(ctx context.Context, followerID, followedID uint) (bool, error) {
	follow := models.Follow{FollowerID: followerID, FollowedID: followedID}
	res := r.store.Conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followed_id"}},
			DoNothing: true,
		}).
		Omit("Follower", "Followed").
		Create(&follow)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		if isForeignKeyViolation(res.Error) {
			return false, missingReference(ctx, r.store,
				reference{"User", &models.User{}, followerID},
				reference{"User", &models.User{}, followedID})
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	res := r.store.Conn(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.FollowedUser, error) {
	var rows []models.FollowedUser
	err := r.store.Conn(ctx).
		Table("follows").
		Select(`follows.followed_id AS followed_id,
			users.username AS followed_name,
			COALESCE(profiles.avatar_url, '') AS followed_avatar,
			follows.created_at AS created_at`).
		Joins("JOIN users ON users.id = follows.followed_id").
		Joins("LEFT JOIN profiles ON profiles.user_id = follows.followed_id").
		Where("follows.follower_id = ?", followerID).
		Order("follows.created_at DESC, follows.followed_id DESC").
		Limit(clampLimit(limit, 50, 200)).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
