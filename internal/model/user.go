package model

import "time"

// User is an account holder.
type User struct {
	ID          ID         `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"uniqueIndex;not null;type:varchar(32)" json:"username"`
	Email       string     `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	DisplayName string     `gorm:"type:varchar(64)" json:"display_name,omitempty"`
	AvatarURL   string     `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	Status      UserStatus `gorm:"not null" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
