package models

import "time"

type User struct {
	BaseModel
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	Email        string `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	AboutMe      string `gorm:"size:140"`
	LastSeen     time.Time

	// Bearer token for the API. Nullable so users without a token don't
	// collide on the unique index; the token value itself is never reused
	// across users.
	Token           *string `gorm:"size:64;uniqueIndex"`
	TokenExpiration *time.Time

	Posts []Post `gorm:"foreignKey:UserID"`
}

// Follow is a follower -> followed edge. The composite primary key makes
// duplicate edges a storage-level error.
type Follow struct {
	FollowerID uint `gorm:"primaryKey;autoIncrement:false"`
	FollowedID uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt  time.Time
}

func (Follow) TableName() string {
	return "follows"
}
