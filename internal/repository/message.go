package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/occult/internal/model"
)

// IMessageRepository defines the interface for message ledger storage
type IMessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	FindByID(ctx context.Context, id model.ID) (*model.Message, error)
	FindByIDForShare(ctx context.Context, id model.ID) (*model.Message, error)
	UpdateContent(ctx context.Context, id model.ID, content string, editedAt time.Time) (bool, error)
	SetPinned(ctx context.Context, id model.ID, pinned bool) (bool, error)
	Delete(ctx context.Context, id model.ID) (bool, error)
	ClearReplies(ctx context.Context, id model.ID) error
	Latest(ctx context.Context, channelID model.ID) (*model.Message, error)
	ListBefore(ctx context.Context, channelID model.ID, before *model.OrderKey, limit int) ([]*model.Message, error)
	ListAfter(ctx context.Context, channelID model.ID, after *model.OrderKey, limit int) ([]*model.Message, error)
	ListPinned(ctx context.Context, channelID model.ID) ([]*model.Message, error)
	Count(ctx context.Context, channelID model.ID) (int64, error)
}

// MessageRepository implements IMessageRepository interface
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new IMessageRepository instance
func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *MessageRepository) FindByID(ctx context.Context, id model.ID) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// FindByIDForShare reads the message and holds a shared row lock until the
// surrounding transaction ends, so a concurrent delete waits for it.
func (r *MessageRepository) FindByIDForShare(ctx context.Context, id model.ID) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", id).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// UpdateContent reports false when the message no longer exists.
func (r *MessageRepository) UpdateContent(ctx context.Context, id model.ID, content string, editedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"content": content, "edited_at": editedAt})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return r.exists(ctx, id)
}

func (r *MessageRepository) SetPinned(ctx context.Context, id model.ID, pinned bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		UpdateColumn("is_pinned", pinned)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return r.exists(ctx, id)
}

// exists backs the updates above: MySQL counts changed rows only, so an
// update that leaves the row as it was reports zero.
func (r *MessageRepository) exists(ctx context.Context, id model.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id model.ID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClearReplies detaches replies that point at id.
func (r *MessageRepository) ClearReplies(ctx context.Context, id model.ID) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("reply_to_id = ?", id).
		UpdateColumn("reply_to_id", nil).Error
}

// Latest returns the channel's maximum message by order key, or nil.
func (r *MessageRepository) Latest(ctx context.Context, channelID model.ID) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListBefore returns up to limit messages strictly older than before, newest
// first. A nil key starts from the newest message.
func (r *MessageRepository) ListBefore(ctx context.Context, channelID model.ID, before *model.OrderKey, limit int) ([]*model.Message, error) {
	query := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if before != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", before.CreatedAt, before.CreatedAt, before.ID)
	}

	var messages []*model.Message
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// ListAfter returns up to limit messages strictly newer than after, oldest
// first. A nil key starts from the oldest message.
func (r *MessageRepository) ListAfter(ctx context.Context, channelID model.ID, after *model.OrderKey, limit int) ([]*model.Message, error) {
	query := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if after != nil {
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var messages []*model.Message
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) ListPinned(ctx context.Context, channelID model.ID) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND is_pinned = ?", channelID, true).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) Count(ctx context.Context, channelID model.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}
