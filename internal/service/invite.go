package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
	"github.com/Gopher0727/occult/internal/utils"
)

var ErrInvalidInvite = apperr.New(apperr.KindValidation, "max uses and lifetime must be positive")

// CodeGenerator produces candidate invite codes.
type CodeGenerator func() (model.InviteCode, error)

// RandomCode draws a code from the system's secure random source.
func RandomCode() (model.InviteCode, error) {
	code, err := utils.GenerateInviteCode(model.InviteCodeLength)
	return model.InviteCode(code), err
}

// CreateInviteRequest represents a request to issue an invite. Nil MaxUses
// or ExpiresIn means unbounded.
type CreateInviteRequest struct {
	ServerID  model.ID
	InviterID model.ID
	MaxUses   *int
	ExpiresIn *time.Duration
}

// InviteView is an invite with its state evaluated at read time.
type InviteView struct {
	*model.Invite
	State     model.InviteState `json:"state"`
	ExpiresIn *time.Duration    `json:"expires_in,omitempty"`
}

// IInviteService issues invite codes and redeems them into memberships
type IInviteService interface {
	Create(ctx context.Context, req *CreateInviteRequest) (*model.Invite, error)
	Redeem(ctx context.Context, code string, userID model.ID) (model.ID, error)
	Get(ctx context.Context, code string) (*InviteView, error)
	List(ctx context.Context, serverID, viewerID model.ID) ([]*InviteView, error)
}

type InviteService struct {
	*Deps
	cfg      config.InviteConfig
	generate CodeGenerator
}

// NewInviteService uses RandomCode when generate is nil.
func NewInviteService(deps *Deps, cfg config.InviteConfig, generate CodeGenerator) IInviteService {
	if generate == nil {
		generate = RandomCode
	}
	return &InviteService{Deps: deps, cfg: cfg, generate: generate}
}

// Create issues a new invite for a server the inviter belongs to. A code
// collision draws a fresh code; Conflict is returned only once the configured
// number of attempts is used up.
func (s *InviteService) Create(ctx context.Context, req *CreateInviteRequest) (*model.Invite, error) {
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return nil, ErrInvalidInvite
	}
	if req.ExpiresIn != nil && *req.ExpiresIn <= 0 {
		return nil, ErrInvalidInvite
	}
	ok, err := s.Gate.IsMember(ctx, req.InviterID, req.ServerID)
	if err := check(ok, err, ErrNotServerMember); err != nil {
		return nil, s.storageFailure(ctx, "invite.create", err)
	}

	now := s.Clock.Now()
	invite := &model.Invite{
		ServerID:  req.ServerID,
		InviterID: req.InviterID,
		MaxUses:   req.MaxUses,
		CreatedAt: now,
	}
	if req.ExpiresIn != nil {
		expires := now.Add(*req.ExpiresIn).Truncate(time.Millisecond)
		invite.ExpiresAt = &expires
	}

	for attempt := 1; attempt <= s.cfg.MaxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, apperr.Storage("invite.create", err)
		}
		if !code.Valid() {
			continue
		}
		invite.Code = code
		created, err := s.Store.Invites.Create(ctx, invite)
		if err != nil {
			return nil, s.storageFailure(ctx, "invite.create", apperr.Wrap("invite.create", err, nil))
		}
		if created {
			s.Log.DebugContext(ctx, "invite created",
				zap.String("code", string(code)),
				zap.Stringer("server_id", req.ServerID),
				zap.Int("attempt", attempt),
			)
			return invite, nil
		}
		s.Log.WarnContext(ctx, "invite code collision", zap.Int("attempt", attempt))
	}
	return nil, ErrInviteCodeConflict
}

// Redeem spends one use of the code and makes the user a member, in one
// transaction. The use is taken by a single conditional update, so at most
// max_uses redemptions ever succeed. A user who is already a member gets
// Conflict and spends nothing.
func (s *InviteService) Redeem(ctx context.Context, code string, userID model.ID) (model.ID, error) {
	inviteCode := model.InviteCode(code)
	if !inviteCode.Valid() {
		return model.Nil, ErrInviteNotFound
	}

	var serverID model.ID
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		now := s.Clock.Now()
		consumed, err := tx.Invites.ConsumeUse(ctx, inviteCode, now)
		if err != nil {
			return apperr.Wrap("invite.redeem", err, nil)
		}
		invite, err := tx.Invites.FindByCode(ctx, inviteCode)
		if err != nil {
			return apperr.Wrap("invite.redeem", err, ErrInviteNotFound)
		}
		if !consumed {
			if invite.State(now) == model.InviteExpired {
				return ErrInviteExpired
			}
			return ErrInviteExhausted
		}

		added, err := tx.Servers.AddMember(ctx, &model.ServerMember{
			ServerID: invite.ServerID,
			UserID:   userID,
			JoinedAt: now,
		})
		if err != nil {
			return apperr.Wrap("invite.redeem", err, nil)
		}
		if !added {
			return ErrAlreadyMember
		}
		serverID = invite.ServerID
		return nil
	})
	if err != nil {
		return model.Nil, s.storageFailure(ctx, "invite.redeem", apperr.Wrap("invite.redeem", err, nil))
	}

	s.Lookup.Invalidate(ctx, inviteKey(inviteCode))
	s.Events.Dispatch(ctx, &events.Event{
		Type:     events.InviteRedeemed,
		ServerID: serverID,
		UserID:   userID,
		At:       s.Clock.Now(),
		Attrs:    map[string]any{"code": code},
	})
	s.Log.DebugContext(ctx, "invite redeemed",
		zap.String("code", code),
		zap.Stringer("user_id", userID),
	)
	return serverID, nil
}

// Get previews an invite. Anyone holding the code may look at it.
func (s *InviteService) Get(ctx context.Context, code string) (*InviteView, error) {
	inviteCode := model.InviteCode(code)
	if !inviteCode.Valid() {
		return nil, ErrInviteNotFound
	}

	var invite model.Invite
	if !s.Lookup.cached(ctx, inviteKey(inviteCode), &invite) {
		found, err := s.Store.Invites.FindByCode(ctx, inviteCode)
		if err != nil {
			return nil, s.storageFailure(ctx, "invite.get", apperr.Wrap("invite.get", err, ErrInviteNotFound))
		}
		s.Lookup.fill(ctx, inviteKey(inviteCode), found)
		invite = *found
	}
	return s.view(&invite), nil
}

func (s *InviteService) List(ctx context.Context, serverID, viewerID model.ID) ([]*InviteView, error) {
	ok, err := s.Gate.IsMember(ctx, viewerID, serverID)
	if err := check(ok, err, ErrNotServerMember); err != nil {
		return nil, s.storageFailure(ctx, "invite.list", err)
	}
	invites, err := s.Store.Invites.ListByServer(ctx, serverID)
	if err != nil {
		return nil, s.storageFailure(ctx, "invite.list", apperr.Wrap("invite.list", err, nil))
	}
	views := make([]*InviteView, len(invites))
	for i, inv := range invites {
		views[i] = s.view(inv)
	}
	return views, nil
}

func (s *InviteService) view(invite *model.Invite) *InviteView {
	now := s.Clock.Now()
	v := &InviteView{Invite: invite, State: invite.State(now)}
	if invite.ExpiresAt != nil && v.State != model.InviteExpired {
		left := invite.ExpiresAt.Sub(now)
		v.ExpiresIn = &left
	}
	return v
}
