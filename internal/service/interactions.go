package service

import (
	"context"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

// ToggleResult reports whether the edge exists after a toggle.
type ToggleResult struct {
	Active bool `json:"active"`
}

const (
	edgeLike   = "like"
	edgeFollow = "follow"
)

// ToggleInteractionEngine flips like and follow edges. Store unique
// constraints settle concurrent toggles on the same edge.
type ToggleInteractionEngine struct {
	tx      Transactor
	users   repository.UserRepository
	posts   repository.PostRepository
	likes   repository.LikeRepository
	follows repository.FollowRepository
	cache   *cache.Cache
}

func NewToggleInteractionEngine(
	tx Transactor,
	users repository.UserRepository,
	posts repository.PostRepository,
	likes repository.LikeRepository,
	follows repository.FollowRepository,
	profileCache *cache.Cache,
) *ToggleInteractionEngine {
	return &ToggleInteractionEngine{
		tx:      tx,
		users:   users,
		posts:   posts,
		likes:   likes,
		follows: follows,
		cache:   profileCache,
	}
}

// edgeOps is the storage of one edge kind bound to a key.
type edgeOps struct {
	exists func(ctx context.Context) (bool, error)
	insert func(ctx context.Context) (bool, error)
	delete func(ctx context.Context) (bool, error)
}

func (e *ToggleInteractionEngine) toggle(ctx context.Context, kind string, ops edgeOps) (bool, error) {
	var active bool
	err := e.tx.Transaction(ctx, func(ctx context.Context) error {
		exists, err := ops.exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			// A concurrent delete may already have removed it; either way it is gone.
			_, err := ops.delete(ctx)
			active = false
			return err
		}
		created, err := ops.insert(ctx)
		if err != nil {
			return err
		}
		if !created {
			observability.ToggleConvergedTotal.WithLabelValues(kind).Inc()
		}
		active = true
		return nil
	})
	if err != nil {
		return false, err
	}
	observability.ToggleTotal.WithLabelValues(kind, observability.ToggleState(active)).Inc()
	return active, nil
}

// ToggleLike likes the post, or removes the like if it exists.
func (e *ToggleInteractionEngine) ToggleLike(ctx context.Context, userID, postID uint) (ToggleResult, error) {
	active, err := e.toggle(ctx, edgeLike, edgeOps{
		exists: func(ctx context.Context) (bool, error) {
			ok, err := e.posts.Exists(ctx, postID)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, models.NewNotFoundError("Post", postID)
			}
			return e.likes.Exists(ctx, userID, postID)
		},
		insert: func(ctx context.Context) (bool, error) { return e.likes.Insert(ctx, userID, postID) },
		delete: func(ctx context.Context) (bool, error) { return e.likes.Delete(ctx, userID, postID) },
	})
	return ToggleResult{Active: active}, err
}

// ToggleFollow follows the user, or unfollows if already following.
func (e *ToggleInteractionEngine) ToggleFollow(ctx context.Context, followerID, followedID uint) (ToggleResult, error) {
	if followerID == followedID {
		return ToggleResult{}, models.NewValidationError("Cannot follow yourself")
	}
	active, err := e.toggle(ctx, edgeFollow, edgeOps{
		exists: func(ctx context.Context) (bool, error) {
			if _, err := e.users.GetByID(ctx, followedID); err != nil {
				return false, err
			}
			return e.follows.Exists(ctx, followerID, followedID)
		},
		insert: func(ctx context.Context) (bool, error) { return e.follows.Insert(ctx, followerID, followedID) },
		delete: func(ctx context.Context) (bool, error) { return e.follows.Delete(ctx, followerID, followedID) },
	})
	if err != nil {
		return ToggleResult{}, err
	}
	e.cache.InvalidateProfiles(ctx, followerID, followedID)
	return ToggleResult{Active: active}, nil
}

// ListLikes returns who liked the post, newest first.
func (e *ToggleInteractionEngine) ListLikes(ctx context.Context, postID uint, limit, offset int) ([]models.Liker, error) {
	ok, err := e.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return e.likes.ListByPost(ctx, postID, limit, offset)
}

// ListFollowing returns the users followerID follows.
func (e *ToggleInteractionEngine) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.FollowedUser, error) {
	if _, err := e.users.GetByID(ctx, followerID); err != nil {
		return nil, err
	}
	return e.follows.ListFollowing(ctx, followerID, limit, offset)
}
