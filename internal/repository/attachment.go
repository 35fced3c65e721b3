package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/occult/internal/model"
)

// IAttachmentRepository defines the interface for attachment metadata
type IAttachmentRepository interface {
	Create(ctx context.Context, attachment *model.Attachment) error
	ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Attachment, error)
	DeleteByMessage(ctx context.Context, messageID model.ID) error
}

// AttachmentRepository implements IAttachmentRepository interface
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new IAttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB) IAttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment *model.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *AttachmentRepository) ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Attachment, error) {
	var attachments []*model.Attachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *AttachmentRepository) DeleteByMessage(ctx context.Context, messageID model.ID) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&model.Attachment{}).Error
}
