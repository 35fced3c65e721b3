package model

import "time"

// Message is one entry in a channel's ledger. Messages are totally ordered
// within a channel by (CreatedAt, ID).
type Message struct {
	ID        ID     `gorm:"primaryKey;index:idx_messages_channel_order,priority:3" json:"id"`
	ChannelID ID     `gorm:"not null;index:idx_messages_channel_order,priority:1" json:"channel_id"`
	AuthorID  ID     `gorm:"index;not null" json:"author_id"`
	Content   string `gorm:"type:text;not null" json:"content"`
	ReplyToID NullID `gorm:"index" json:"reply_to_id"`
	IsPinned  bool   `gorm:"not null;default:false" json:"is_pinned"`

	CreatedAt time.Time  `gorm:"not null;index:idx_messages_channel_order,priority:2" json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// Key returns the message's position in channel order.
func (m *Message) Key() OrderKey {
	return OrderKey{CreatedAt: m.CreatedAt, ID: m.ID}
}

// Before reports whether m sorts strictly before other in channel order.
func (m *Message) Before(other *Message) bool {
	return m.Key().Compare(other.Key()) < 0
}

// OrderKey totally orders messages within a channel: creation time first,
// identifier on ties.
type OrderKey struct {
	CreatedAt time.Time
	ID        ID
}

func (k OrderKey) Compare(other OrderKey) int {
	if !k.CreatedAt.Equal(other.CreatedAt) {
		if k.CreatedAt.Before(other.CreatedAt) {
			return -1
		}
		return 1
	}
	return k.ID.Compare(other.ID)
}
