package model

import "time"

// Attachment is metadata for a file stored elsewhere.
type Attachment struct {
	ID        ID             `gorm:"primaryKey" json:"id"`
	MessageID ID             `gorm:"index;not null" json:"message_id"`
	Kind      AttachmentKind `gorm:"not null" json:"kind"`
	URL       string         `gorm:"not null;type:varchar(2048)" json:"url"`
	FileName  string         `gorm:"not null;type:varchar(255)" json:"file_name"`
	MimeType  string         `gorm:"not null;type:varchar(127)" json:"mime_type"`
	SizeBytes int64          `gorm:"not null" json:"size_bytes"`
	Width     *int           `json:"width,omitempty"`
	Height    *int           `json:"height,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
