package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/occult/internal/model"
)

// IReactionRepository defines the interface for reaction facts
type IReactionRepository interface {
	Add(ctx context.Context, reaction *model.Reaction) (bool, error)
	Remove(ctx context.Context, messageID, userID model.ID, emoji model.Emoji) (bool, error)
	ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Reaction, error)
	DeleteByMessage(ctx context.Context, messageID model.ID) error
}

// ReactionRepository implements IReactionRepository interface
type ReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new IReactionRepository instance
func NewReactionRepository(db *gorm.DB) IReactionRepository {
	return &ReactionRepository{db: db}
}

// Add inserts the fact, reporting false if the same triple already exists.
func (r *ReactionRepository) Add(ctx context.Context, reaction *model.Reaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reaction)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ReactionRepository) Remove(ctx context.Context, messageID, userID model.ID, emoji model.Emoji) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&model.Reaction{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByMessage returns the message's reactions in insertion order.
func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID model.ID) ([]*model.Reaction, error) {
	var reactions []*model.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("seq ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *ReactionRepository) DeleteByMessage(ctx context.Context, messageID model.ID) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&model.Reaction{}).Error
}
