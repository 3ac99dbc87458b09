// Package testutil provides shared fixtures for tests that need real stores.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// OpenSQLiteStore opens a private in-memory SQLite store with its schema migrated.
func OpenSQLiteStore(t testing.TB, name string) *database.Store {
	t.Helper()
	store, err := database.Open(config.StoreConfig{
		Name:   name,
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, database.AutoMigrate(context.Background(), store))
	return store
}

// NewStores returns independent main and auth stores, each its own database.
func NewStores(t testing.TB) *database.Stores {
	t.Helper()
	return &database.Stores{
		Main: OpenSQLiteStore(t, database.StoreMain),
		Auth: OpenSQLiteStore(t, database.StoreAuth),
	}
}

// CreateUser inserts a user and an empty profile into the main store.
func CreateUser(t testing.TB, store *database.Store, username string, isAdmin bool) *models.User {
	t.Helper()
	ctx := context.Background()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		IsAdmin:  isAdmin,
	}
	require.NoError(t, store.Conn(ctx).Omit("Profile").Create(user).Error)
	require.NoError(t, store.Conn(ctx).Create(&models.Profile{UserID: user.ID}).Error)
	return user
}

// CreatePost inserts a post with an explicit creation time.
func CreatePost(t testing.TB, store *database.Store, authorID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{UserID: authorID, Content: content, CreatedAt: createdAt, UpdatedAt: createdAt}
	require.NoError(t, store.Conn(context.Background()).Omit("User").Create(post).Error)
	return post
}

// CreateComment inserts a comment on postID.
func CreateComment(t testing.TB, store *database.Store, postID, authorID uint, content string) *models.Comment {
	t.Helper()
	comment := &models.Comment{PostID: postID, UserID: authorID, Content: content}
	require.NoError(t, store.Conn(context.Background()).Omit("User", "Post").Create(comment).Error)
	return comment
}

// Like inserts a like edge.
func Like(t testing.TB, store *database.Store, userID, postID uint) {
	t.Helper()
	require.NoError(t, store.Conn(context.Background()).Omit("User", "Post").
		Create(&models.Like{UserID: userID, PostID: postID}).Error)
}

// Follow inserts a follow edge.
func Follow(t testing.TB, store *database.Store, followerID, followedID uint) {
	t.Helper()
	require.NoError(t, store.Conn(context.Background()).Omit("Follower", "Followed").
		Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error)
}

// CountRows returns the number of rows of model in store.
func CountRows(t testing.TB, store *database.Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, store.Conn(context.Background()).Model(model).Count(&n).Error)
	return n
}
