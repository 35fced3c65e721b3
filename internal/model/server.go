package model

import "time"

// Server groups channels under a single owner and a membership roster.
type Server struct {
	ID          ID     `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;type:varchar(100)" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	OwnerID     ID     `gorm:"index;not null" json:"owner_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Server) TableName() string {
	return "servers"
}

// ServerMember is the membership fact joining a user to a server.
type ServerMember struct {
	ServerID ID `gorm:"primaryKey" json:"server_id"`
	UserID   ID `gorm:"primaryKey;index" json:"user_id"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (ServerMember) TableName() string {
	return "server_members"
}
