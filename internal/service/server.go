package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
	"github.com/Gopher0727/occult/internal/utils"
)

const (
	maxNameLength = 100
	// DefaultChannelName is the text channel every new server starts with.
	DefaultChannelName = "general"
)

var (
	ErrInvalidName    = apperr.New(apperr.KindValidation, "name must be 1-100 characters")
	ErrInvalidChannel = apperr.New(apperr.KindValidation, "invalid channel settings")
)

// CreateServerRequest represents a request to create a server
type CreateServerRequest struct {
	OwnerID     model.ID
	Name        string
	Description string
}

// CreateChannelRequest represents a request to add a channel to a server
type CreateChannelRequest struct {
	ServerID        model.ID
	ActorID         model.ID
	Name            string
	Kind            model.ChannelKind
	Topic           string
	IsPrivate       bool
	SlowModeSeconds int
}

// IServerService manages servers, their rosters and their channels
type IServerService interface {
	CreateServer(ctx context.Context, req *CreateServerRequest) (*model.Server, error)
	GetServer(ctx context.Context, serverID, viewerID model.ID) (*model.Server, error)
	ListServers(ctx context.Context, userID model.ID) ([]*model.Server, error)
	ListMembers(ctx context.Context, serverID, viewerID model.ID) ([]*model.ServerMember, error)
	Leave(ctx context.Context, serverID, userID model.ID) error
	CreateChannel(ctx context.Context, req *CreateChannelRequest) (*model.Channel, error)
	GetChannel(ctx context.Context, channelID, viewerID model.ID) (*model.Channel, error)
	ListChannels(ctx context.Context, serverID, viewerID model.ID) ([]*model.Channel, error)
}

type ServerService struct {
	*Deps
}

func NewServerService(deps *Deps) IServerService {
	return &ServerService{Deps: deps}
}

// CreateServer makes the creator owner and first member and opens the
// default text channel, in one transaction.
func (s *ServerService) CreateServer(ctx context.Context, req *CreateServerRequest) (*model.Server, error) {
	if !utils.ValidateText(req.Name, maxNameLength) {
		return nil, ErrInvalidName
	}
	if _, err := s.Store.Users.FindByID(ctx, req.OwnerID); err != nil {
		return nil, s.storageFailure(ctx, "server.create", apperr.Wrap("server.create", err, ErrUserNotFound))
	}

	now := s.Clock.Now()
	server := &model.Server{
		ID:          model.NewID(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Servers.Create(ctx, server); err != nil {
			return err
		}
		if _, err := tx.Servers.AddMember(ctx, &model.ServerMember{ServerID: server.ID, UserID: req.OwnerID, JoinedAt: now}); err != nil {
			return err
		}
		return tx.Channels.Create(ctx, &model.Channel{
			ID:        model.NewID(),
			ServerID:  server.ID,
			Name:      DefaultChannelName,
			Kind:      model.ChannelText,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, s.storageFailure(ctx, "server.create", apperr.Wrap("server.create", err, nil))
	}

	s.Log.DebugContext(ctx, "server created", zap.Stringer("server_id", server.ID))
	return server, nil
}

func (s *ServerService) GetServer(ctx context.Context, serverID, viewerID model.ID) (*model.Server, error) {
	if err := s.requireMember(ctx, "server.get", serverID, viewerID); err != nil {
		return nil, err
	}
	return s.Lookup.Server(ctx, serverID)
}

func (s *ServerService) ListServers(ctx context.Context, userID model.ID) ([]*model.Server, error) {
	servers, err := s.Store.Servers.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.storageFailure(ctx, "server.list", apperr.Wrap("server.list", err, nil))
	}
	return servers, nil
}

func (s *ServerService) ListMembers(ctx context.Context, serverID, viewerID model.ID) ([]*model.ServerMember, error) {
	if err := s.requireMember(ctx, "server.members", serverID, viewerID); err != nil {
		return nil, err
	}
	members, err := s.Store.Servers.ListMembers(ctx, serverID)
	if err != nil {
		return nil, s.storageFailure(ctx, "server.members", apperr.Wrap("server.members", err, nil))
	}
	return members, nil
}

// Leave removes the user from the roster. Owners cannot leave.
func (s *ServerService) Leave(ctx context.Context, serverID, userID model.ID) error {
	isOwner, err := s.Gate.IsOwner(ctx, userID, serverID)
	if err != nil {
		return s.storageFailure(ctx, "server.leave", err)
	}
	if isOwner {
		return ErrOwnerCannotLeave
	}
	removed, err := s.Store.Servers.RemoveMember(ctx, serverID, userID)
	if err != nil {
		return s.storageFailure(ctx, "server.leave", apperr.Wrap("server.leave", err, nil))
	}
	if !removed {
		return ErrNotMember
	}

	s.Events.Dispatch(ctx, &events.Event{
		Type:     events.MemberLeft,
		ServerID: serverID,
		UserID:   userID,
		At:       s.Clock.Now(),
	})
	return nil
}

// CreateChannel adds a channel. Only the server owner may do so.
func (s *ServerService) CreateChannel(ctx context.Context, req *CreateChannelRequest) (*model.Channel, error) {
	if !utils.ValidateText(req.Name, maxNameLength) {
		return nil, ErrInvalidName
	}
	if _, err := req.Kind.MarshalText(); err != nil || req.SlowModeSeconds < 0 {
		return nil, ErrInvalidChannel
	}
	ok, err := s.Gate.IsOwner(ctx, req.ActorID, req.ServerID)
	if err := check(ok, err, ErrNotOwner); err != nil {
		return nil, s.storageFailure(ctx, "channel.create", err)
	}

	channel := &model.Channel{
		ID:              model.NewID(),
		ServerID:        req.ServerID,
		Name:            req.Name,
		Kind:            req.Kind,
		Topic:           req.Topic,
		IsPrivate:       req.IsPrivate,
		SlowModeSeconds: req.SlowModeSeconds,
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.Store.Channels.Create(ctx, channel); err != nil {
		return nil, s.storageFailure(ctx, "channel.create", apperr.Wrap("channel.create", err, nil))
	}
	return channel, nil
}

func (s *ServerService) GetChannel(ctx context.Context, channelID, viewerID model.ID) (*model.Channel, error) {
	ok, err := s.Gate.CanReadChannel(ctx, viewerID, channelID)
	if err := check(ok, err, ErrCannotRead); err != nil {
		return nil, s.storageFailure(ctx, "channel.get", err)
	}
	// the pointer is only current in the store
	channel, err := s.Store.Channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, s.storageFailure(ctx, "channel.get", apperr.Wrap("channel.get", err, ErrChannelNotFound))
	}
	return channel, nil
}

// ListChannels returns the channels the viewer can read.
func (s *ServerService) ListChannels(ctx context.Context, serverID, viewerID model.ID) ([]*model.Channel, error) {
	if err := s.requireMember(ctx, "channel.list", serverID, viewerID); err != nil {
		return nil, err
	}
	server, err := s.Lookup.Server(ctx, serverID)
	if err != nil {
		return nil, s.storageFailure(ctx, "channel.list", err)
	}
	channels, err := s.Store.Channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, s.storageFailure(ctx, "channel.list", apperr.Wrap("channel.list", err, nil))
	}
	visible := channels[:0]
	for _, c := range channels {
		if !c.IsPrivate || server.OwnerID == viewerID {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (s *ServerService) requireMember(ctx context.Context, op string, serverID, userID model.ID) error {
	if _, err := s.Lookup.Server(ctx, serverID); err != nil {
		return s.storageFailure(ctx, op, err)
	}
	ok, err := s.Gate.IsMember(ctx, userID, serverID)
	if err := check(ok, err, ErrNotServerMember); err != nil {
		return s.storageFailure(ctx, op, err)
	}
	return nil
}
