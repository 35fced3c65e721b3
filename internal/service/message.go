package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
	"github.com/Gopher0727/occult/internal/utils"
	logger "github.com/Gopher0727/occult/middleware/log"
)

var (
	ErrInvalidMessageContent = apperr.New(apperr.KindValidation, "invalid message content")
	ErrInvalidAttachment     = apperr.New(apperr.KindValidation, "invalid attachment")
)

// AppendRequest represents a request to post a message
type AppendRequest struct {
	ChannelID model.ID
	AuthorID  model.ID
	Content   string
	ReplyToID *model.ID
}

// AttachmentRequest describes file metadata to attach to a message
type AttachmentRequest struct {
	MessageID model.ID
	ActorID   model.ID
	Kind      model.AttachmentKind
	URL       string
	FileName  string
	MimeType  string
	SizeBytes int64
	Width     *int
	Height    *int
}

// MessageView is a message with everything a reader renders alongside it.
type MessageView struct {
	*model.Message
	Reactions   []model.ReactionSummary `json:"reactions"`
	Mentions    []model.ID              `json:"mentions"`
	Attachments []*model.Attachment     `json:"attachments"`
}

// IMessageService defines the message ledger operations
type IMessageService interface {
	Append(ctx context.Context, req *AppendRequest) (*model.Message, error)
	Edit(ctx context.Context, messageID, editorID model.ID, content string) (*model.Message, error)
	Delete(ctx context.Context, messageID, actorID model.ID) error
	Paginate(ctx context.Context, viewerID, channelID model.ID, q PageQuery) (*Page, error)
	Get(ctx context.Context, messageID, viewerID model.ID) (*MessageView, error)
	SetPinned(ctx context.Context, messageID, actorID model.ID, pinned bool) (*model.Message, error)
	ListPinned(ctx context.Context, viewerID, channelID model.ID) ([]*model.Message, error)
	AddAttachment(ctx context.Context, req *AttachmentRequest) (*model.Attachment, error)
}

// MessageService implements IMessageService
type MessageService struct {
	*Deps
	cfg      config.LedgerConfig
	pointers pointerMaintainer
}

// NewMessageService creates a new IMessageService instance
func NewMessageService(deps *Deps, cfg config.LedgerConfig) IMessageService {
	return &MessageService{Deps: deps, cfg: cfg}
}

// Append validates and authorises the post, then writes the message, its
// mentions and the channel pointer in one transaction.
func (s *MessageService) Append(ctx context.Context, req *AppendRequest) (*model.Message, error) {
	if !utils.ValidateText(req.Content, s.cfg.MaxContentLength) {
		return nil, ErrInvalidMessageContent
	}
	ok, err := s.Gate.CanWriteChannel(ctx, req.AuthorID, req.ChannelID)
	if err := check(ok, err, ErrCannotWrite); err != nil {
		return nil, s.storageFailure(ctx, "message.append", err)
	}
	channel, err := s.Lookup.Channel(ctx, req.ChannelID)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.append", err)
	}

	var mentioned []model.ID
	if candidates := parseMentions(req.Content); len(candidates) > 0 {
		members, err := s.Store.Servers.FilterMembers(ctx, channel.ServerID, candidates)
		if err != nil {
			return nil, s.storageFailure(ctx, "message.append", apperr.Wrap("message.append", err, nil))
		}
		mentioned = keepMembers(candidates, members)
	}

	// the window is taken last; release hands it back if the write fails
	slot, err := s.throttle(ctx, channel, req.AuthorID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:        model.NewID(),
		ChannelID: req.ChannelID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: s.Clock.Now(),
	}
	if req.ReplyToID != nil {
		msg.ReplyToID = model.Some(*req.ReplyToID)
	}

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if req.ReplyToID != nil {
			// the parent cannot be deleted under a reply that is not yet visible
			parent, err := tx.Messages.FindByIDForShare(ctx, *req.ReplyToID)
			if err != nil {
				return apperr.Wrap("message.append", err, ErrReplyNotFound)
			}
			if parent.ChannelID != msg.ChannelID {
				return ErrReplyNotFound
			}
		}
		if err := tx.Messages.Create(ctx, msg); err != nil {
			return apperr.Wrap("message.append", err, nil)
		}
		if len(mentioned) > 0 {
			rows := make([]*model.Mention, len(mentioned))
			for i, id := range mentioned {
				rows[i] = &model.Mention{MessageID: msg.ID, UserID: id, Position: i}
			}
			if err := tx.Mentions.CreateBatch(ctx, rows); err != nil {
				return apperr.Wrap("message.append", err, nil)
			}
		}
		return s.pointers.advance(ctx, tx, msg)
	})
	if err != nil {
		s.release(ctx, slot)
		return nil, s.storageFailure(ctx, "message.append", apperr.Wrap("message.append", err, nil))
	}

	s.Events.Dispatch(ctx, &events.Event{
		Type:      events.MessageCreated,
		ServerID:  channel.ServerID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    msg.AuthorID,
		At:        msg.CreatedAt,
	})
	s.Log.DebugContext(ctx, "message appended",
		zap.Stringer("message_id", msg.ID),
		zap.Stringer("channel_id", msg.ChannelID),
		zap.Int("mentions", len(mentioned)),
	)
	return msg, nil
}

// Edit replaces the content of the author's own message. Mentions recorded
// at creation are left untouched.
func (s *MessageService) Edit(ctx context.Context, messageID, editorID model.ID, content string) (*model.Message, error) {
	if !utils.ValidateText(content, s.cfg.MaxContentLength) {
		return nil, ErrInvalidMessageContent
	}
	msg, err := s.find(ctx, "message.edit", messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != editorID {
		return nil, ErrNotAuthor
	}
	// authorship alone is not enough once the author loses the channel
	ok, err := s.Gate.CanWriteChannel(ctx, editorID, msg.ChannelID)
	if err := check(ok, err, ErrCannotWrite); err != nil {
		return nil, s.storageFailure(ctx, "message.edit", err)
	}

	now := s.Clock.Now()
	updated, err := s.Store.Messages.UpdateContent(ctx, messageID, content, now)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.edit", apperr.Wrap("message.edit", err, nil))
	}
	if !updated {
		return nil, ErrMessageNotFound
	}
	msg.Content = content
	msg.EditedAt = &now

	s.Events.Dispatch(ctx, &events.Event{
		Type:      events.MessageEdited,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    editorID,
		At:        now,
	})
	return msg, nil
}

// Delete removes the message with its reactions, mentions and attachments,
// detaches replies and recomputes the channel pointer, all atomically.
func (s *MessageService) Delete(ctx context.Context, messageID, actorID model.ID) error {
	msg, err := s.find(ctx, "message.delete", messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID == actorID {
		ok, err := s.Gate.CanReadChannel(ctx, actorID, msg.ChannelID)
		if err := check(ok, err, ErrCannotRead); err != nil {
			return s.storageFailure(ctx, "message.delete", err)
		}
	} else {
		ok, err := s.Gate.CanModerate(ctx, actorID, msg.ChannelID)
		if err := check(ok, err, ErrNotModerator); err != nil {
			return s.storageFailure(ctx, "message.delete", err)
		}
	}

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Reactions.DeleteByMessage(ctx, messageID); err != nil {
			return apperr.Wrap("message.delete", err, nil)
		}
		if err := tx.Mentions.DeleteByMessage(ctx, messageID); err != nil {
			return apperr.Wrap("message.delete", err, nil)
		}
		if err := tx.Attachments.DeleteByMessage(ctx, messageID); err != nil {
			return apperr.Wrap("message.delete", err, nil)
		}
		if err := tx.Messages.ClearReplies(ctx, messageID); err != nil {
			return apperr.Wrap("message.delete", err, nil)
		}
		deleted, err := tx.Messages.Delete(ctx, messageID)
		if err != nil {
			return apperr.Wrap("message.delete", err, nil)
		}
		if !deleted {
			return ErrMessageNotFound
		}
		return s.pointers.recede(ctx, tx, msg.ChannelID)
	})
	if err != nil {
		return s.storageFailure(ctx, "message.delete", apperr.Wrap("message.delete", err, nil))
	}

	s.Events.Dispatch(ctx, &events.Event{
		Type:      events.MessageDeleted,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    actorID,
		At:        s.Clock.Now(),
	})
	s.Log.DebugContext(ctx, "message deleted", zap.Stringer("message_id", msg.ID))
	return nil
}

// Paginate returns one page of channel history, newest first.
func (s *MessageService) Paginate(ctx context.Context, viewerID, channelID model.ID, q PageQuery) (*Page, error) {
	if q.Before != nil && q.After != nil {
		return nil, ErrBothCursors
	}
	limit, err := s.clamp(q.Limit)
	if err != nil {
		return nil, err
	}
	ok, err := s.Gate.CanReadChannel(ctx, viewerID, channelID)
	if err := check(ok, err, ErrCannotRead); err != nil {
		return nil, s.storageFailure(ctx, "message.paginate", err)
	}

	var msgs []*model.Message
	switch {
	case q.After != nil:
		msgs, err = s.Store.Messages.ListAfter(ctx, channelID, q.After.key(), limit+1)
	case q.Before != nil && q.Before.isOrigin():
		return &Page{Messages: []*model.Message{}}, nil
	case q.Before != nil:
		msgs, err = s.Store.Messages.ListBefore(ctx, channelID, q.Before.key(), limit+1)
	default:
		msgs, err = s.Store.Messages.ListBefore(ctx, channelID, nil, limit+1)
	}
	if err != nil {
		return nil, s.storageFailure(ctx, "message.paginate", apperr.Wrap("message.paginate", err, nil))
	}

	page := &Page{HasMore: len(msgs) > limit}
	if page.HasMore {
		msgs = msgs[:limit]
	}
	if q.After != nil {
		// fetched oldest first
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}
	page.Messages = msgs
	if len(msgs) > 0 {
		page.After = cursorOf(msgs[0]).String()
		page.Before = cursorOf(msgs[len(msgs)-1]).String()
	}
	return page, nil
}

func (s *MessageService) clamp(limit *int) (int, error) {
	switch {
	case limit == nil:
		return s.cfg.DefaultPageSize, nil
	case *limit <= 0:
		return 0, ErrInvalidLimit
	case *limit > s.cfg.MaxPageSize:
		return s.cfg.MaxPageSize, nil
	default:
		return *limit, nil
	}
}

// Get returns the message with reactions relative to the viewer, its
// mentions and its attachments.
func (s *MessageService) Get(ctx context.Context, messageID, viewerID model.ID) (*MessageView, error) {
	msg, err := s.find(ctx, "message.get", messageID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Gate.CanReadChannel(ctx, viewerID, msg.ChannelID)
	if err := check(ok, err, ErrCannotRead); err != nil {
		return nil, s.storageFailure(ctx, "message.get", err)
	}

	reactions, err := s.Store.Reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.get", apperr.Wrap("message.get", err, nil))
	}
	mentions, err := s.Store.Mentions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.get", apperr.Wrap("message.get", err, nil))
	}
	attachments, err := s.Store.Attachments.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.get", apperr.Wrap("message.get", err, nil))
	}

	return &MessageView{
		Message:     msg,
		Reactions:   summarize(reactions, viewerID),
		Mentions:    mentionedUsers(mentions),
		Attachments: attachments,
	}, nil
}

func (s *MessageService) SetPinned(ctx context.Context, messageID, actorID model.ID, pinned bool) (*model.Message, error) {
	msg, err := s.find(ctx, "message.pin", messageID)
	if err != nil {
		return nil, err
	}
	ok, err := s.Gate.CanModerate(ctx, actorID, msg.ChannelID)
	if err := check(ok, err, ErrNotModerator); err != nil {
		return nil, s.storageFailure(ctx, "message.pin", err)
	}
	if msg.IsPinned == pinned {
		return msg, nil
	}

	updated, err := s.Store.Messages.SetPinned(ctx, messageID, pinned)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.pin", apperr.Wrap("message.pin", err, nil))
	}
	if !updated {
		return nil, ErrMessageNotFound
	}
	msg.IsPinned = pinned

	typ := events.MessagePinned
	if !pinned {
		typ = events.MessageUnpinned
	}
	s.Events.Dispatch(ctx, &events.Event{
		Type:      typ,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    actorID,
		At:        s.Clock.Now(),
	})
	return msg, nil
}

func (s *MessageService) ListPinned(ctx context.Context, viewerID, channelID model.ID) ([]*model.Message, error) {
	ok, err := s.Gate.CanReadChannel(ctx, viewerID, channelID)
	if err := check(ok, err, ErrCannotRead); err != nil {
		return nil, s.storageFailure(ctx, "message.list_pinned", err)
	}
	msgs, err := s.Store.Messages.ListPinned(ctx, channelID)
	if err != nil {
		return nil, s.storageFailure(ctx, "message.list_pinned", apperr.Wrap("message.list_pinned", err, nil))
	}
	return msgs, nil
}

// AddAttachment records file metadata on the author's own message.
func (s *MessageService) AddAttachment(ctx context.Context, req *AttachmentRequest) (*model.Attachment, error) {
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.FileName) == "" || req.SizeBytes < 0 {
		return nil, ErrInvalidAttachment
	}
	if _, err := req.Kind.MarshalText(); err != nil {
		return nil, ErrInvalidAttachment
	}
	msg, err := s.find(ctx, "message.attach", req.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != req.ActorID {
		return nil, ErrNotAuthor
	}

	attachment := &model.Attachment{
		ID:        model.NewID(),
		MessageID: req.MessageID,
		Kind:      req.Kind,
		URL:       req.URL,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		Width:     req.Width,
		Height:    req.Height,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Store.Attachments.Create(ctx, attachment); err != nil {
		return nil, s.storageFailure(ctx, "message.attach", apperr.Wrap("message.attach", err, nil))
	}
	return attachment, nil
}

func (s *MessageService) find(ctx context.Context, op string, id model.ID) (*model.Message, error) {
	msg, err := s.Store.Messages.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageFailure(ctx, op, apperr.Wrap(op, err, ErrMessageNotFound))
	}
	return msg, nil
}

func slowModeKey(channelID, userID model.ID) string {
	return "slowmode:" + channelID.String() + ":" + userID.String()
}

// throttle enforces the channel's slow mode and returns the limiter key it
// consumed, if any. Moderators are exempt.
func (s *MessageService) throttle(ctx context.Context, channel *model.Channel, authorID model.ID) (string, error) {
	if s.Limiter == nil || channel.SlowModeSeconds <= 0 {
		return "", nil
	}
	exempt, err := s.Gate.CanModerate(ctx, authorID, channel.ID)
	if err != nil {
		return "", s.storageFailure(ctx, "message.append", err)
	}
	if exempt {
		return "", nil
	}
	key := slowModeKey(channel.ID, authorID)
	window := time.Duration(channel.SlowModeSeconds) * time.Second
	ok, err := s.Limiter.Allow(ctx, key, window)
	if err != nil {
		return "", s.storageFailure(ctx, "message.append", apperr.Storage("message.append", err))
	}
	if !ok {
		left, err := s.Limiter.Remaining(ctx, key)
		if err != nil || left <= 0 {
			return "", ErrSlowMode
		}
		return "", fmt.Errorf("%w: retry in %s", ErrSlowMode, left.Round(time.Second))
	}
	return key, nil
}

// release hands back a slow-mode window whose append did not commit.
func (s *MessageService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Limiter.Reset(context.WithoutCancel(ctx), key); err != nil {
		s.Log.WarnContext(ctx, "failed to release slow mode window", zap.String("key", key), logger.Err(err))
	}
}
