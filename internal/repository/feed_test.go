package repository

import (
	"context"
	"testing"
	"time"

	"agora/internal/database"
	"agora/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedRepository_SingleAggregateQuery(t *testing.T) {
	store, mock := setupMockDB(t)
	repo := NewFeedRepository(store)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"post_id", "author_id", "author_username", "author_avatar_url", "content",
		"created_at", "like_count", "comment_count", "is_followed_by_viewer",
	}).AddRow(5, 2, "bob", "", "hi", now, 3, 1, 1)
	mock.ExpectQuery(`ORDER BY is_followed_by_viewer DESC, like_count DESC, p.created_at DESC, p.id DESC`).
		WithArgs(9, 20).
		WillReturnRows(rows)

	feed, err := repo.Ranked(context.Background(), 9, 20)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].IsFollowedByViewer)
	assert.Equal(t, int64(3), feed[0].LikeCount)
	assert.Equal(t, "bob", feed[0].AuthorUsername)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepository_Ranking(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewFeedRepository(store)

	viewer := testutil.CreateUser(t, store, "viewer", false)
	followed := testutil.CreateUser(t, store, "followed", false)
	stranger := testutil.CreateUser(t, store, "stranger", false)
	fan := testutil.CreateUser(t, store, "fan", false)
	testutil.Follow(t, store, viewer.ID, followed.ID)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p1 := testutil.CreatePost(t, store, followed.ID, "from a friend", base)
	p2 := testutil.CreatePost(t, store, stranger.ID, "popular", base.Add(time.Minute))
	p3 := testutil.CreatePost(t, store, stranger.ID, "newer but quiet", base.Add(2*time.Minute))
	testutil.Like(t, store, fan.ID, p2.ID)
	testutil.Like(t, store, viewer.ID, p2.ID)
	testutil.CreateComment(t, store, p2.ID, fan.ID, "nice")

	feed, err := repo.Ranked(context.Background(), viewer.ID, 20)
	require.NoError(t, err)
	require.Len(t, feed, 3)

	assert.Equal(t, p1.ID, feed[0].PostID)
	assert.True(t, feed[0].IsFollowedByViewer)
	assert.Equal(t, p2.ID, feed[1].PostID)
	assert.Equal(t, int64(2), feed[1].LikeCount)
	assert.Equal(t, int64(1), feed[1].CommentCount)
	assert.Equal(t, p3.ID, feed[2].PostID)
	assert.False(t, feed[2].IsFollowedByViewer)
}
