package service

import (
	"context"
	"testing"
	"time"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	author := &models.User{ID: 1}
	stranger := &models.User{ID: 2}
	admin := &models.User{ID: 3, IsAdmin: true}
	post := &models.Post{ID: 10, UserID: author.ID}
	comment := &models.Comment{ID: 20, UserID: author.ID}

	tests := []struct {
		name     string
		actor    *models.User
		resource models.Owned
		action   Action
		allowed  bool
	}{
		{"author edits post", author, post, ActionEdit, true},
		{"author deletes post", author, post, ActionDelete, true},
		{"stranger edits post", stranger, post, ActionEdit, false},
		{"stranger deletes post", stranger, post, ActionDelete, false},
		{"admin edits post", admin, post, ActionEdit, false},
		{"admin deletes post", admin, post, ActionDelete, true},
		{"admin edits comment", admin, comment, ActionEdit, false},
		{"admin deletes comment", admin, comment, ActionDelete, true},
		{"nil actor", nil, post, ActionDelete, false},
		{"unknown action", author, post, Action("publish"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.resource, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assertCode(t, err, models.CodeForbidden)
			}
		})
	}
}

func TestPostService_AdminCannotEditButCanDelete(t *testing.T) {
	f := newFixture(t)
	s := NewPostService(f.stores.Main, f.posts, f.users)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.stores.Main, "author", false)
	admin := testutil.CreateUser(t, f.stores.Main, "root", true)
	post := testutil.CreatePost(t, f.stores.Main, author.ID, "original", time.Now().UTC())

	_, err := s.UpdatePost(ctx, UpdatePostInput{UserID: admin.ID, PostID: post.ID, Content: "hijacked"})
	assertCode(t, err, models.CodeForbidden)
	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)

	require.NoError(t, s.DeletePost(ctx, DeletePostInput{UserID: admin.ID, PostID: post.ID}))
	_, err = s.GetPost(ctx, post.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	s := NewPostService(f.stores.Main, f.posts, f.users)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.stores.Main, "author", false)
	stranger := testutil.CreateUser(t, f.stores.Main, "stranger", false)

	_, err := s.CreatePost(ctx, CreatePostInput{UserID: author.ID, Content: "   "})
	assertCode(t, err, models.CodeValidation)
	_, err = s.CreatePost(ctx, CreatePostInput{UserID: 999, Content: "hi"})
	assertCode(t, err, models.CodeNotFound)

	post, err := s.CreatePost(ctx, CreatePostInput{UserID: author.ID, Content: "hi"})
	require.NoError(t, err)
	require.NotNil(t, post.User)
	assert.Equal(t, "author", post.User.Username)

	updated, err := s.UpdatePost(ctx, UpdatePostInput{UserID: author.ID, PostID: post.ID, Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	err = s.DeletePost(ctx, DeletePostInput{UserID: stranger.ID, PostID: post.ID})
	assertCode(t, err, models.CodeForbidden)

	posts, err := s.ListUserPosts(ctx, author.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	err = s.DeletePost(ctx, DeletePostInput{UserID: author.ID, PostID: 12345})
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	s := NewCommentService(f.stores.Main, f.comments, f.posts, f.users)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.stores.Main, "author", false)
	admin := testutil.CreateUser(t, f.stores.Main, "root", true)
	post := testutil.CreatePost(t, f.stores.Main, author.ID, "post", time.Now().UTC())
	other := testutil.CreatePost(t, f.stores.Main, author.ID, "other", time.Now().UTC())

	_, err := s.CreateComment(ctx, CreateCommentInput{UserID: author.ID, PostID: 999, Content: "x"})
	assertCode(t, err, models.CodeNotFound)

	comment, err := s.CreateComment(ctx, CreateCommentInput{UserID: author.ID, PostID: post.ID, Content: "first"})
	require.NoError(t, err)

	_, err = s.UpdateComment(ctx, UpdateCommentInput{UserID: admin.ID, PostID: post.ID, CommentID: comment.ID, Content: "nope"})
	assertCode(t, err, models.CodeForbidden)

	_, err = s.UpdateComment(ctx, UpdateCommentInput{UserID: author.ID, PostID: other.ID, CommentID: comment.ID, Content: "wrong post"})
	assertCode(t, err, models.CodeNotFound)

	edited, err := s.UpdateComment(ctx, UpdateCommentInput{UserID: author.ID, PostID: post.ID, CommentID: comment.ID, Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	comments, err := s.ListComments(ctx, post.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "author", comments[0].User.Username)

	require.NoError(t, s.DeleteComment(ctx, DeleteCommentInput{UserID: admin.ID, PostID: post.ID, CommentID: comment.ID}))
	comments, err = s.ListComments(ctx, post.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
