package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/pkg/redis"
	"github.com/Gopher0727/occult/internal/repository"
	"github.com/Gopher0727/occult/internal/storage/storagetest"
	"github.com/Gopher0727/occult/middleware/jwt"
	logger "github.com/Gopher0727/occult/middleware/log"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evs ...*events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evs...)
}

func (d *recordingDispatcher) types() []events.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Type, len(d.events))
	for i, ev := range d.events {
		out[i] = ev.Type
	}
	return out
}

type harness struct {
	deps   *Deps
	svc    *Services
	cfg    *config.Config
	clock  *model.ManualClock
	cache  *miniredis.Miniredis
	tokens *jwt.TokenManager
	sink   *recordingDispatcher

	owner, member, stranger *model.User

	server  *model.Server
	general *model.Channel
}

func testConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{DefaultPageSize: 50, MaxPageSize: 100, MaxContentLength: 2000},
		Invite: config.InviteConfig{MaxCodeAttempts: 5},
	}
}

// newHarness builds every service over a private sqlite database and a
// miniredis cache, with an owner, a member and a stranger around one server.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache := redis.NewClientFrom(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	h := &harness{
		cfg:    testConfig(),
		clock:  model.NewManualClock(epoch),
		cache:  mr,
		tokens: jwt.NewTokenManager("test-secret", 1),
		sink:   &recordingDispatcher{},
	}
	store := repository.NewStore(storagetest.NewSQLite(t))
	h.deps = NewDeps(store, cache, h.tokens, h.clock, h.sink, logger.NewNop())
	h.deps.Limiter = redis.NewLimiter(cache, nil, false)
	h.svc = NewServices(h.deps, h.cfg)

	h.owner = h.register(t, "owner")
	h.member = h.register(t, "member")
	h.stranger = h.register(t, "stranger")

	server, err := h.svc.Servers.CreateServer(ctx, &CreateServerRequest{OwnerID: h.owner.ID, Name: "guild"})
	require.NoError(t, err)
	h.server = server
	h.join(t, h.member.ID)

	channels, err := h.svc.Servers.ListChannels(ctx, server.ID, h.owner.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	h.general = channels[0]
	return h
}

func (h *harness) register(t *testing.T, name string) *model.User {
	t.Helper()
	user, err := h.svc.Users.Register(context.Background(), &RegisterRequest{Username: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return user
}

func (h *harness) join(t *testing.T, userID model.ID) {
	t.Helper()
	_, err := h.deps.Store.Servers.AddMember(context.Background(), &model.ServerMember{ServerID: h.server.ID, UserID: userID, JoinedAt: h.clock.Now()})
	require.NoError(t, err)
}

func (h *harness) newChannel(t require.TestingT, kind model.ChannelKind, private bool) *model.Channel {
	channel, err := h.svc.Servers.CreateChannel(context.Background(), &CreateChannelRequest{
		ServerID:  h.server.ID,
		ActorID:   h.owner.ID,
		Name:      "room",
		Kind:      kind,
		IsPrivate: private,
	})
	require.NoError(t, err)
	return channel
}

func (h *harness) post(t require.TestingT, author model.ID, channelID model.ID, content string) *model.Message {
	msg, err := h.svc.Messages.Append(context.Background(), &AppendRequest{ChannelID: channelID, AuthorID: author, Content: content})
	require.NoError(t, err)
	return msg
}

// pointer reads the channel straight from the store, bypassing the cache.
func (h *harness) pointer(t require.TestingT, channelID model.ID) *model.Channel {
	channel, err := h.deps.Store.Channels.FindByID(context.Background(), channelID)
	require.NoError(t, err)
	return channel
}
