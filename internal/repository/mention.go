package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/occult/internal/model"
)

// IMentionRepository defines the interface for mention facts
type IMentionRepository interface {
	CreateBatch(ctx context.Context, mentions []*model.Mention) error
	ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Mention, error)
	DeleteByMessage(ctx context.Context, messageID model.ID) error
}

// MentionRepository implements IMentionRepository interface
type MentionRepository struct {
	db *gorm.DB
}

// NewMentionRepository creates a new IMentionRepository instance
func NewMentionRepository(db *gorm.DB) IMentionRepository {
	return &MentionRepository{db: db}
}

func (r *MentionRepository) CreateBatch(ctx context.Context, mentions []*model.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&mentions).Error
}

func (r *MentionRepository) ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Mention, error) {
	var mentions []*model.Mention
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("position ASC").
		Find(&mentions).Error
	if err != nil {
		return nil, err
	}
	return mentions, nil
}

func (r *MentionRepository) DeleteByMessage(ctx context.Context, messageID model.ID) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&model.Mention{}).Error
}
