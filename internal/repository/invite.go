package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/occult/internal/model"
)

// IInviteRepository defines the interface for invite storage
type IInviteRepository interface {
	Create(ctx context.Context, invite *model.Invite) (bool, error)
	FindByCode(ctx context.Context, code model.InviteCode) (*model.Invite, error)
	ConsumeUse(ctx context.Context, code model.InviteCode, now time.Time) (bool, error)
	ListByServer(ctx context.Context, serverID model.ID) ([]*model.Invite, error)
}

// InviteRepository implements IInviteRepository interface
type InviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new IInviteRepository instance
func NewInviteRepository(db *gorm.DB) IInviteRepository {
	return &InviteRepository{db: db}
}

// Create inserts the invite, reporting false when the code is taken.
func (r *InviteRepository) Create(ctx context.Context, invite *model.Invite) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(invite)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InviteRepository) FindByCode(ctx context.Context, code model.InviteCode) (*model.Invite, error) {
	var invite model.Invite
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// ConsumeUse increments uses in one conditional statement that only applies
// while the invite is unexpired at now and under its cap. It reports whether
// a use was consumed.
func (r *InviteRepository) ConsumeUse(ctx context.Context, code model.InviteCode, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("code = ?", code).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Where("(max_uses IS NULL OR uses < max_uses)").
		UpdateColumn("uses", gorm.Expr("uses + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *InviteRepository) ListByServer(ctx context.Context, serverID model.ID) ([]*model.Invite, error) {
	var invites []*model.Invite
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}
