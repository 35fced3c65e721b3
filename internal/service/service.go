// Package service holds the chat core: the message ledger and its channel
// pointer, reactions and mentions, invite redemption, and the server,
// channel and user records they hang off.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/access"
	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
	logger "github.com/Gopher0727/occult/middleware/log"
)

var (
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
	ErrServerNotFound     = apperr.New(apperr.KindNotFound, "server not found")
	ErrChannelNotFound    = apperr.New(apperr.KindNotFound, "channel not found")
	ErrMessageNotFound    = apperr.New(apperr.KindNotFound, "message not found")
	ErrReplyNotFound      = apperr.New(apperr.KindNotFound, "reply target not found in channel")
	ErrInviteNotFound     = apperr.New(apperr.KindNotFound, "invite not found")
	ErrNotMember          = apperr.New(apperr.KindNotFound, "user is not a member of this server")
	ErrCannotRead         = apperr.New(apperr.KindForbidden, "no read access to channel")
	ErrCannotWrite        = apperr.New(apperr.KindForbidden, "no write access to channel")
	ErrNotAuthor          = apperr.New(apperr.KindForbidden, "only the author may do this")
	ErrNotModerator       = apperr.New(apperr.KindForbidden, "moderation rights required")
	ErrNotOwner           = apperr.New(apperr.KindForbidden, "only the server owner may do this")
	ErrNotServerMember    = apperr.New(apperr.KindForbidden, "server membership required")
	ErrOwnerCannotLeave   = apperr.New(apperr.KindForbidden, "the owner cannot leave their server")
	ErrSlowMode           = apperr.New(apperr.KindForbidden, "slow mode is active in this channel")
	ErrUserAlreadyExists  = apperr.New(apperr.KindConflict, "username or email already taken")
	ErrAlreadyMember      = apperr.New(apperr.KindConflict, "user is already a member of this server")
	ErrInviteCodeConflict = apperr.New(apperr.KindConflict, "could not allocate a unique invite code")
	ErrInviteExpired      = apperr.New(apperr.KindExpired, "invite has expired")
	ErrInviteExhausted    = apperr.New(apperr.KindExhausted, "invite has no uses left")
)

// RateLimiter admits one action per key per window. *redis.Limiter
// satisfies it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// Deps bundles the collaborators every service is built from. A nil Limiter
// turns channel slow mode off.
type Deps struct {
	Store   *repository.Store
	Lookup  *Lookup
	Gate    access.IGate
	Clock   model.Clock
	Events  events.IDispatcher
	Limiter RateLimiter
	Log     *logger.Logger
}

// NewDeps wires the lookup and the access gate over store. cache, clock,
// dispatcher and log may be nil.
func NewDeps(store *repository.Store, cache Cache, auth access.Authenticator, clock model.Clock, dispatcher events.IDispatcher, log *logger.Logger) *Deps {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	lookup := NewLookup(store, cache, log)
	return &Deps{
		Store:  store,
		Lookup: lookup,
		Gate:   access.NewGate(auth, lookup),
		Clock:  clock,
		Events: dispatcher,
		Log:    log,
	}
}

// Services is the full set built from one Deps.
type Services struct {
	Users     IUserService
	Servers   IServerService
	Messages  IMessageService
	Reactions IReactionService
	Invites   IInviteService
}

func NewServices(deps *Deps, cfg *config.Config) *Services {
	return &Services{
		Users:     NewUserService(deps),
		Servers:   NewServerService(deps),
		Messages:  NewMessageService(deps, cfg.Ledger),
		Reactions: NewReactionService(deps),
		Invites:   NewInviteService(deps, cfg.Invite, nil),
	}
}

// check turns a capability answer into denied when it is false.
func check(ok bool, err error, denied error) error {
	if err != nil {
		return err
	}
	if !ok {
		return denied
	}
	return nil
}

// storageFailure logs err when it is a storage failure and returns it unchanged.
func (d *Deps) storageFailure(ctx context.Context, op string, err error) error {
	if apperr.KindOf(err) == apperr.KindTransientStorage {
		d.Log.ErrorContext(ctx, "storage operation failed", zap.String("op", op), logger.Err(err))
	}
	return err
}
