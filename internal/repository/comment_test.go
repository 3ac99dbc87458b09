package repository

import (
	"context"
	"testing"
	"time"

	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListByPostOldestFirst(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewCommentRepository(store)
	ctx := context.Background()

	author := testutil.CreateUser(t, store, "author", false)
	reader := testutil.CreateUser(t, store, "reader", false)
	post := testutil.CreatePost(t, store, author.ID, "post", time.Now().UTC())

	first := &models.Comment{PostID: post.ID, UserID: reader.ID, Content: "first"}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "second"}
	require.NoError(t, repo.Create(ctx, second))

	comments, err := repo.ListByPost(ctx, post.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	require.NotNil(t, comments[0].User)
	assert.Equal(t, "reader", comments[0].User.Username)
}

func TestCommentRepository_CreateOnMissingPost(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewCommentRepository(store)
	author := testutil.CreateUser(t, store, "author", false)

	err := repo.Create(context.Background(), &models.Comment{PostID: 404, UserID: author.ID, Content: "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)
}

func TestCommentRepository_UpdateAndDelete(t *testing.T) {
	store := testutil.OpenSQLiteStore(t, database.StoreMain)
	repo := NewCommentRepository(store)
	ctx := context.Background()

	author := testutil.CreateUser(t, store, "author", false)
	post := testutil.CreatePost(t, store, author.ID, "post", time.Now().UTC())
	comment := testutil.CreateComment(t, store, post.ID, author.ID, "typo")

	require.NoError(t, repo.UpdateContent(ctx, comment.ID, "fixed"))
	got, err := repo.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Content)

	require.NoError(t, repo.Delete(ctx, comment.ID))
	_, err = repo.GetByID(ctx, comment.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
