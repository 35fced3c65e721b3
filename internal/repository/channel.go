package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/occult/internal/model"
)

// IChannelRepository defines the interface for channel data operations
type IChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	FindByID(ctx context.Context, id model.ID) (*model.Channel, error)
	FindByIDForUpdate(ctx context.Context, id model.ID) (*model.Channel, error)
	ListByServer(ctx context.Context, serverID model.ID) ([]*model.Channel, error)
	AdvancePointer(ctx context.Context, channelID, messageID model.ID, at time.Time) (bool, error)
	SetPointer(ctx context.Context, channelID model.ID, last *model.Message) error
}

// ChannelRepository implements IChannelRepository interface
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new IChannelRepository instance
func NewChannelRepository(db *gorm.DB) IChannelRepository {
	return &ChannelRepository{db: db}
}

func (r *ChannelRepository) Create(ctx context.Context, channel *model.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *ChannelRepository) FindByID(ctx context.Context, id model.ID) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindByIDForUpdate reads the channel and holds its row lock until the
// surrounding transaction ends. Stores without row locks ignore the clause.
func (r *ChannelRepository) FindByIDForUpdate(ctx context.Context, id model.ID) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *ChannelRepository) ListByServer(ctx context.Context, serverID model.ID) ([]*model.Channel, error) {
	var channels []*model.Channel
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at ASC, id ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// AdvancePointer moves the pointer to (at, messageID) only if that key is
// newer than the current one. It reports whether the row changed.
func (r *ChannelRepository) AdvancePointer(ctx context.Context, channelID, messageID model.ID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Channel{}).
		Where("id = ?", channelID).
		Where("(last_message_id IS NULL OR last_message_at < ? OR (last_message_at = ? AND last_message_id < ?))", at, at, messageID).
		UpdateColumns(map[string]any{
			"last_message_id": messageID,
			"last_message_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetPointer overwrites the pointer with last, or clears it when last is nil.
func (r *ChannelRepository) SetPointer(ctx context.Context, channelID model.ID, last *model.Message) error {
	values := map[string]any{
		"last_message_id": nil,
		"last_message_at": nil,
	}
	if last != nil {
		values["last_message_id"] = last.ID
		values["last_message_at"] = last.CreatedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Channel{}).
		Where("id = ?", channelID).
		UpdateColumns(values).Error
}
