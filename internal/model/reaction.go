package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Emoji is a reaction token. It compares byte-for-byte in every store.
type Emoji string

// MaxEmojiRunes bounds the length of an emoji token.
const MaxEmojiRunes = 32

func (Emoji) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "VARCHAR(128) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"
	case "postgres":
		return "VARCHAR(128)"
	default:
		return "TEXT"
	}
}

// Reaction is a single (message, user, emoji) fact. Seq records insertion
// order so summaries keep first-seen ordering.
type Reaction struct {
	MessageID ID    `gorm:"primaryKey" json:"message_id"`
	UserID    ID    `gorm:"primaryKey" json:"user_id"`
	Emoji     Emoji `gorm:"primaryKey" json:"emoji"`
	Seq       ID    `gorm:"not null;index" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Reaction) TableName() string {
	return "reactions"
}

// ReactionSummary is the viewer-relative aggregate for one emoji.
type ReactionSummary struct {
	Emoji      Emoji `json:"emoji"`
	Count      int   `json:"count"`
	HasReacted bool  `json:"has_reacted"`
}

// Mention records that a message referenced a user when it was created.
type Mention struct {
	MessageID ID  `gorm:"primaryKey" json:"message_id"`
	UserID    ID  `gorm:"primaryKey;index" json:"user_id"`
	Position  int `gorm:"not null" json:"-"`
}

func (Mention) TableName() string {
	return "mentions"
}
