package repository

import (
	"context"
	"time"

	"agora/internal/database"
	"agora/internal/models"
)

// FeedRepository computes ranked post summaries for a viewer.
type FeedRepository interface {
	Ranked(ctx context.Context, viewerID uint, limit int) ([]models.PostSummary, error)
}

type feedRepository struct {
	store *database.Store
}

// NewFeedRepository creates a FeedRepository on the main store.
func NewFeedRepository(store *database.Store) FeedRepository {
	return &feedRepository{store: store}
}

const rankedFeedSQL = `
SELECT
	p.id AS post_id,
	p.user_id AS author_id,
	u.username AS author_username,
	COALESCE(pr.avatar_url, '') AS author_avatar_url,
	p.content AS content,
	p.created_at AS created_at,
	(SELECT COUNT(DISTINCT l.user_id) FROM likes l WHERE l.post_id = p.id) AS like_count,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count,
	CASE WHEN EXISTS (
		SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.followed_id = p.user_id
	) THEN 1 ELSE 0 END AS is_followed_by_viewer
FROM posts p
JOIN users u ON u.id = p.user_id
LEFT JOIN profiles pr ON pr.user_id = p.user_id
ORDER BY is_followed_by_viewer DESC, like_count DESC, p.created_at DESC, p.id DESC
LIMIT ?`

type rankedRow struct {
	PostID             uint
	AuthorID           uint
	AuthorUsername     string
	AuthorAvatarURL    string
	Content            string
	CreatedAt          time.Time
	LikeCount          int64
	CommentCount       int64
	IsFollowedByViewer int
}

// Ranked runs the single aggregate feed query. limit must already be clamped.
func (r *feedRepository) Ranked(ctx context.Context, viewerID uint, limit int) ([]models.PostSummary, error) {
	var rows []rankedRow
	if err := r.store.Conn(ctx).Raw(rankedFeedSQL, viewerID, limit).Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]models.PostSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.PostSummary{
			PostID:             row.PostID,
			AuthorID:           row.AuthorID,
			AuthorUsername:     row.AuthorUsername,
			AuthorAvatarURL:    row.AuthorAvatarURL,
			Content:            row.Content,
			CreatedAt:          row.CreatedAt,
			LikeCount:          row.LikeCount,
			CommentCount:       row.CommentCount,
			IsFollowedByViewer: row.IsFollowedByViewer != 0,
		})
	}
	return out, nil
}
