package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/occult/internal/model"
)

func TestLookupCachesChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	key := "occult:" + channelKey(h.general.ID)

	assert.False(t, h.cache.Exists(key))
	got, err := h.deps.Lookup.Channel(ctx, h.general.ID)
	require.NoError(t, err)
	assert.Equal(t, h.general.ID, got.ID)
	assert.True(t, h.cache.Exists(key))

	cached, err := h.deps.Lookup.Channel(ctx, h.general.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Name, cached.Name)
	assert.Equal(t, model.ChannelText, cached.Kind)

	h.deps.Lookup.Invalidate(ctx, channelKey(h.general.ID))
	assert.False(t, h.cache.Exists(key))
}

func TestLookupSurvivesCacheOutage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.cache.Close()

	got, err := h.deps.Lookup.Server(ctx, h.server.ID)
	require.NoError(t, err)
	assert.Equal(t, h.server.ID, got.ID)

	// writes still succeed
	h.post(t, h.member.ID, h.general.ID, "cache is down")
}

func TestLookupWithoutCache(t *testing.T) {
	h := newHarness(t)
	lookup := NewLookup(h.deps.Store, nil, nil)

	_, err := lookup.Channel(context.Background(), model.NewID())
	assert.ErrorIs(t, err, ErrChannelNotFound)

	ok, err := lookup.IsMember(context.Background(), h.server.ID, h.member.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLookupNeverServesAStalePointer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// a reader caches the channel, then appends commit behind it
	_, err := h.deps.Lookup.Channel(ctx, h.general.ID)
	require.NoError(t, err)
	msg := h.post(t, h.member.ID, h.general.ID, "after the read")
	h.deps.Lookup.Invalidate(ctx, channelKey(h.general.ID))
	_, err = h.deps.Lookup.Channel(ctx, h.general.ID)
	require.NoError(t, err)

	raw, err := h.cache.Get("occult:" + channelKey(h.general.ID))
	require.NoError(t, err)
	assert.Contains(t, raw, `"last_message_id":null`)

	cached, err := h.deps.Lookup.Channel(ctx, h.general.ID)
	require.NoError(t, err)
	assert.False(t, cached.HasMessages())

	got, err := h.svc.Servers.GetChannel(ctx, h.general.ID, h.member.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Some(msg.ID), got.LastMessageID)
}
