package models

import "time"

// Like represents a user's like on a post.
// The combination of UserID and PostID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// Follow is a directed edge from follower to followed.
// The pair is the primary key and self-follows are rejected by a check constraint.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false;check:chk_follows_not_self,follower_id <> followed_id" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed *User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

// FollowedUser is a row of the "who do I follow" listing.
type FollowedUser struct {
	FollowedID     uint      `json:"followed_id"`
	FollowedName   string    `json:"followed_name"`
	FollowedAvatar string    `json:"followed_avatar"`
	CreatedAt      time.Time `json:"created_at"`
}

// Liker is a row of a post's like listing.
type Liker struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
