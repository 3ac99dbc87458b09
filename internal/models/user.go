// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an identity record owned by the main store.
// Its credential lives in the auth store and is linked only by ID.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;not null;uniqueIndex:idx_users_username" json:"username"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// Profile holds the public, editable details of a user.
type Profile struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_profiles_user" json:"user_id"`
	Bio       string `gorm:"type:text" json:"bio"`
	Location  string `gorm:"size:120" json:"location"`
	Website   string `gorm:"size:255" json:"website"`
	AvatarURL string `gorm:"size:512" json:"avatar_url"`
}

// UserProfile is the read model returned by profile lookups.
type UserProfile struct {
	User           User    `json:"user"`
	Profile        Profile `json:"profile"`
	FollowerCount  int64   `json:"follower_count"`
	FollowingCount int64   `json:"following_count"`
}

// UserSearchResult is a user row ranked by popularity.
type UserSearchResult struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	AvatarURL     string `json:"avatar_url"`
	FollowerCount int64  `json:"follower_count"`
}
