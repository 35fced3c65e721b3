package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/occult/internal/model"
)

// IServerRepository defines the interface for server and membership operations
type IServerRepository interface {
	Create(ctx context.Context, server *model.Server) error
	FindByID(ctx context.Context, id model.ID) (*model.Server, error)
	AddMember(ctx context.Context, member *model.ServerMember) (bool, error)
	RemoveMember(ctx context.Context, serverID, userID model.ID) (bool, error)
	IsMember(ctx context.Context, serverID, userID model.ID) (bool, error)
	FilterMembers(ctx context.Context, serverID model.ID, userIDs []model.ID) ([]model.ID, error)
	ListForUser(ctx context.Context, userID model.ID) ([]*model.Server, error)
	ListMembers(ctx context.Context, serverID model.ID) ([]*model.ServerMember, error)
}

// ServerRepository implements IServerRepository interface
type ServerRepository struct {
	db *gorm.DB
}

// NewServerRepository creates a new IServerRepository instance
func NewServerRepository(db *gorm.DB) IServerRepository {
	return &ServerRepository{db: db}
}

func (r *ServerRepository) Create(ctx context.Context, server *model.Server) error {
	return r.db.WithContext(ctx).Create(server).Error
}

func (r *ServerRepository) FindByID(ctx context.Context, id model.ID) (*model.Server, error) {
	var server model.Server
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&server).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

// AddMember inserts the membership fact. It reports false, without error,
// when the user is already a member.
func (r *ServerRepository) AddMember(ctx context.Context, member *model.ServerMember) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ServerRepository) RemoveMember(ctx context.Context, serverID, userID model.ID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Delete(&model.ServerMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ServerRepository) IsMember(ctx context.Context, serverID, userID model.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ServerMember{}).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FilterMembers returns the subset of userIDs that belong to the server.
func (r *ServerRepository) FilterMembers(ctx context.Context, serverID model.ID, userIDs []model.ID) ([]model.ID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var members []model.ID
	err := r.db.WithContext(ctx).
		Model(&model.ServerMember{}).
		Where("server_id = ? AND user_id IN ?", serverID, userIDs).
		Pluck("user_id", &members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *ServerRepository) ListForUser(ctx context.Context, userID model.ID) ([]*model.Server, error) {
	var servers []*model.Server
	err := r.db.WithContext(ctx).
		Joins("JOIN server_members ON servers.id = server_members.server_id").
		Where("server_members.user_id = ?", userID).
		Order("server_members.joined_at ASC").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

func (r *ServerRepository) ListMembers(ctx context.Context, serverID model.ID) ([]*model.ServerMember, error) {
	var members []*model.ServerMember
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
