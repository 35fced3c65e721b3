// Package access answers capability questions over membership and
// ownership facts. It never mutates state.
package access

import (
	"context"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
)

var ErrUnauthenticated = apperr.New(apperr.KindForbidden, "authentication required")

// Authenticator turns a bearer credential into a user identifier.
type Authenticator interface {
	Verify(ctx context.Context, credential string) (model.ID, error)
}

// Directory reads the facts capability checks are decided on. Lookups of
// absent channels or servers fail with a NotFound error.
type Directory interface {
	Channel(ctx context.Context, id model.ID) (*model.Channel, error)
	Server(ctx context.Context, id model.ID) (*model.Server, error)
	IsMember(ctx context.Context, serverID, userID model.ID) (bool, error)
}

// IGate is consulted before every mutation.
type IGate interface {
	Authenticate(ctx context.Context, credential string) (model.ID, error)
	IsMember(ctx context.Context, userID, serverID model.ID) (bool, error)
	CanReadChannel(ctx context.Context, userID, channelID model.ID) (bool, error)
	CanWriteChannel(ctx context.Context, userID, channelID model.ID) (bool, error)
	CanModerate(ctx context.Context, userID, channelID model.ID) (bool, error)
	IsOwner(ctx context.Context, userID, serverID model.ID) (bool, error)
}

// Gate implements IGate.
type Gate struct {
	auth Authenticator
	dir  Directory
}

func NewGate(auth Authenticator, dir Directory) IGate {
	return &Gate{auth: auth, dir: dir}
}

func (g *Gate) Authenticate(ctx context.Context, credential string) (model.ID, error) {
	if credential == "" || g.auth == nil {
		return model.Nil, ErrUnauthenticated
	}
	return g.auth.Verify(ctx, credential)
}

func (g *Gate) IsMember(ctx context.Context, userID, serverID model.ID) (bool, error) {
	return g.dir.IsMember(ctx, serverID, userID)
}

func (g *Gate) IsOwner(ctx context.Context, userID, serverID model.ID) (bool, error) {
	server, err := g.dir.Server(ctx, serverID)
	if err != nil {
		return false, err
	}
	return server.OwnerID == userID, nil
}

// CanReadChannel: members read public channels; private channels are
// visible to the server owner only.
func (g *Gate) CanReadChannel(ctx context.Context, userID, channelID model.ID) (bool, error) {
	channel, server, err := g.resolve(ctx, channelID)
	if err != nil {
		return false, err
	}
	return g.canRead(ctx, userID, channel, server)
}

// CanWriteChannel: readers may post, except in voice channels, and only the
// owner posts in announcement channels.
func (g *Gate) CanWriteChannel(ctx context.Context, userID, channelID model.ID) (bool, error) {
	channel, server, err := g.resolve(ctx, channelID)
	if err != nil {
		return false, err
	}
	ok, err := g.canRead(ctx, userID, channel, server)
	if err != nil || !ok {
		return false, err
	}
	switch channel.Kind {
	case model.ChannelVoice:
		return false, nil
	case model.ChannelAnnouncement:
		return server.OwnerID == userID, nil
	default:
		return true, nil
	}
}

// CanModerate: the owner of the channel's server moderates it.
func (g *Gate) CanModerate(ctx context.Context, userID, channelID model.ID) (bool, error) {
	_, server, err := g.resolve(ctx, channelID)
	if err != nil {
		return false, err
	}
	return server.OwnerID == userID, nil
}

func (g *Gate) canRead(ctx context.Context, userID model.ID, channel *model.Channel, server *model.Server) (bool, error) {
	if server.OwnerID == userID {
		return true, nil
	}
	if channel.IsPrivate {
		return false, nil
	}
	return g.dir.IsMember(ctx, server.ID, userID)
}

func (g *Gate) resolve(ctx context.Context, channelID model.ID) (*model.Channel, *model.Server, error) {
	channel, err := g.dir.Channel(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	server, err := g.dir.Server(ctx, channel.ServerID)
	if err != nil {
		return nil, nil, err
	}
	return channel, server, nil
}
