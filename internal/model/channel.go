package model

import "time"

// Channel belongs to one server. LastMessageID and LastMessageAt together
// form the channel's pointer to its most recent message; both are null when
// the channel has no messages.
type Channel struct {
	ID              ID          `gorm:"primaryKey" json:"id"`
	ServerID        ID          `gorm:"index;not null" json:"server_id"`
	Name            string      `gorm:"not null;type:varchar(100)" json:"name"`
	Kind            ChannelKind `gorm:"not null" json:"kind"`
	Topic           string      `gorm:"type:text" json:"topic,omitempty"`
	IsPrivate       bool        `gorm:"not null;default:false" json:"is_private"`
	SlowModeSeconds int         `gorm:"not null;default:0" json:"slow_mode_seconds"`

	LastMessageID NullID     `json:"last_message_id"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// HasMessages reports whether the pointer is set.
func (c *Channel) HasMessages() bool {
	return c.LastMessageID.Valid
}
