package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories bound to one connection handle: either the
// pool or an open transaction.
type Store struct {
	db *gorm.DB

	Users       IUserRepository
	Servers     IServerRepository
	Channels    IChannelRepository
	Messages    IMessageRepository
	Reactions   IReactionRepository
	Mentions    IMentionRepository
	Attachments IAttachmentRepository
	Invites     IInviteRepository
}

// NewStore binds every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Servers:     NewServerRepository(db),
		Channels:    NewChannelRepository(db),
		Messages:    NewMessageRepository(db),
		Reactions:   NewReactionRepository(db),
		Mentions:    NewMentionRepository(db),
		Attachments: NewAttachmentRepository(db),
		Invites:     NewInviteRepository(db),
	}
}

// Transaction runs fn against repositories bound to a single transaction.
// The transaction commits if fn returns nil and rolls back otherwise,
// including when ctx is cancelled mid-way.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}
