package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
	logger "github.com/Gopher0727/occult/middleware/log"
)

// Cache is the external read-through cache. *redis.Client satisfies it.
// A miss reports false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

func channelKey(id model.ID) string {
	return "channel:" + id.String()
}

func serverKey(id model.ID) string {
	return "server:" + id.String()
}

func inviteKey(code model.InviteCode) string {
	return "invite:" + string(code)
}

// Lookup reads channel and server records cache-aside and answers the
// access gate's directory questions. Cache failures degrade to the store.
type Lookup struct {
	store *repository.Store
	cache Cache
	log   *logger.Logger
}

func NewLookup(store *repository.Store, cache Cache, log *logger.Logger) *Lookup {
	if log == nil {
		log = logger.NewNop()
	}
	return &Lookup{store: store, cache: cache, log: log}
}

// Channel returns the channel's settings. The pointer columns move on every
// append and are never cached, so they are always empty here; read the row
// from the store when the pointer matters.
func (l *Lookup) Channel(ctx context.Context, id model.ID) (*model.Channel, error) {
	var channel model.Channel
	if l.cached(ctx, channelKey(id), &channel) {
		return withoutPointer(&channel), nil
	}
	found, err := l.store.Channels.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("channel.get", err, ErrChannelNotFound)
	}
	found = withoutPointer(found)
	l.fill(ctx, channelKey(id), found)
	return found, nil
}

func withoutPointer(c *model.Channel) *model.Channel {
	c.LastMessageID = model.NullID{}
	c.LastMessageAt = nil
	return c
}

func (l *Lookup) Server(ctx context.Context, id model.ID) (*model.Server, error) {
	var server model.Server
	if l.cached(ctx, serverKey(id), &server) {
		return &server, nil
	}
	found, err := l.store.Servers.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap("server.get", err, ErrServerNotFound)
	}
	l.fill(ctx, serverKey(id), found)
	return found, nil
}

// IsMember always asks the store; membership changes too often to cache.
func (l *Lookup) IsMember(ctx context.Context, serverID, userID model.ID) (bool, error) {
	ok, err := l.store.Servers.IsMember(ctx, serverID, userID)
	if err != nil {
		return false, apperr.Wrap("server.is_member", err, nil)
	}
	return ok, nil
}

// Invalidate drops cached entries after the rows behind them changed.
func (l *Lookup) Invalidate(ctx context.Context, keys ...string) {
	if l.cache == nil || len(keys) == 0 {
		return
	}
	if err := l.cache.Delete(ctx, keys...); err != nil {
		l.log.WarnContext(ctx, "cache invalidation failed", zap.Strings("keys", keys), logger.Err(err))
	}
}

func (l *Lookup) cached(ctx context.Context, key string, dst any) bool {
	if l.cache == nil {
		return false
	}
	hit, err := l.cache.Get(ctx, key, dst)
	if err != nil {
		l.log.WarnContext(ctx, "cache read failed", zap.String("key", key), logger.Err(err))
		return false
	}
	return hit
}

func (l *Lookup) fill(ctx context.Context, key string, value any) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, key, value); err != nil {
		l.log.WarnContext(ctx, "cache write failed", zap.String("key", key), logger.Err(err))
	}
}
