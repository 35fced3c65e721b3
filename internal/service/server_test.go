package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
)

func TestCreateServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, h.owner.ID, h.server.OwnerID)
	assert.Equal(t, DefaultChannelName, h.general.Name)
	assert.Equal(t, model.ChannelText, h.general.Kind)
	assert.False(t, h.general.HasMessages())

	servers, err := h.svc.Servers.ListServers(ctx, h.owner.ID)
	require.NoError(t, err)
	require.Len(t, servers, 1)

	_, err = h.svc.Servers.CreateServer(ctx, &CreateServerRequest{OwnerID: h.owner.ID, Name: ""})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = h.svc.Servers.CreateServer(ctx, &CreateServerRequest{OwnerID: model.NewID(), Name: "ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetServerRequiresMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.svc.Servers.GetServer(ctx, h.server.ID, h.member.ID)
	require.NoError(t, err)
	assert.Equal(t, h.server.Name, got.Name)

	_, err = h.svc.Servers.GetServer(ctx, h.server.ID, h.stranger.ID)
	assert.ErrorIs(t, err, ErrNotServerMember)

	_, err = h.svc.Servers.GetServer(ctx, model.NewID(), h.member.ID)
	assert.ErrorIs(t, err, ErrServerNotFound)

	members, err := h.svc.Servers.ListMembers(ctx, h.server.ID, h.member.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestLeave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.svc.Servers.Leave(ctx, h.server.ID, h.owner.ID)
	assert.ErrorIs(t, err, ErrOwnerCannotLeave)

	require.NoError(t, h.svc.Servers.Leave(ctx, h.server.ID, h.member.ID))
	err = h.svc.Servers.Leave(ctx, h.server.ID, h.member.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	// a former member loses write access at once
	_, err = h.svc.Messages.Append(ctx, &AppendRequest{ChannelID: h.general.ID, AuthorID: h.member.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrCannotWrite)
}

func TestChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Servers.CreateChannel(ctx, &CreateChannelRequest{ServerID: h.server.ID, ActorID: h.member.ID, Name: "mine", Kind: model.ChannelText})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = h.svc.Servers.CreateChannel(ctx, &CreateChannelRequest{ServerID: h.server.ID, ActorID: h.owner.ID, Name: "bad"})
	assert.ErrorIs(t, err, ErrInvalidChannel)

	secret := h.newChannel(t, model.ChannelText, true)

	visible, err := h.svc.Servers.ListChannels(ctx, h.server.ID, h.member.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := h.svc.Servers.ListChannels(ctx, h.server.ID, h.owner.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.svc.Servers.GetChannel(ctx, secret.ID, h.member.ID)
	assert.ErrorIs(t, err, ErrCannotRead)

	got, err := h.svc.Servers.GetChannel(ctx, secret.ID, h.owner.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrivate)

	_, err = h.svc.Servers.GetChannel(ctx, model.NewID(), h.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
