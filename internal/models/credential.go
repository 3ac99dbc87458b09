package models

import "time"

// Credential is the only record kept in the auth store.
// UserID references users.id in the main store but no foreign key can
// enforce that across stores.
type Credential struct {
	UserID       uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
