package models

import "time"

// Owned is implemented by resources that have a single author.
type Owned interface {
	OwnerID() uint
}

// Post is a piece of content authored by a user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
}

// OwnerID returns the author of the post.
func (p *Post) OwnerID() uint { return p.UserID }

// PostSummary is one ranked row of a user's feed.
type PostSummary struct {
	PostID             uint      `json:"post_id"`
	AuthorID           uint      `json:"author_id"`
	AuthorUsername     string    `json:"author_username"`
	AuthorAvatarURL    string    `json:"author_avatar"`
	Content            string    `json:"content"`
	CreatedAt          time.Time `json:"created_at"`
	LikeCount          int64     `json:"like_count"`
	CommentCount       int64     `json:"comment_count"`
	IsFollowedByViewer bool      `json:"is_followed"`
}
