package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/utils"
)

var ErrInvalidEmoji = apperr.New(apperr.KindValidation, "invalid emoji")

// IReactionService toggles reaction facts and renders reaction and mention
// aggregates for a message.
type IReactionService interface {
	Add(ctx context.Context, messageID, userID model.ID, emoji string) error
	Remove(ctx context.Context, messageID, userID model.ID, emoji string) error
	Aggregate(ctx context.Context, messageID, viewerID model.ID) ([]model.ReactionSummary, error)
	Mentions(ctx context.Context, messageID, viewerID model.ID) ([]model.ID, error)
}

type ReactionService struct {
	*Deps
}

func NewReactionService(deps *Deps) IReactionService {
	return &ReactionService{Deps: deps}
}

// Add records the reaction. Repeating it is a no-op.
func (s *ReactionService) Add(ctx context.Context, messageID, userID model.ID, emoji string) error {
	token, err := parseEmoji(emoji)
	if err != nil {
		return err
	}
	msg, err := s.readable(ctx, "reaction.add", messageID, userID)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	added, err := s.Store.Reactions.Add(ctx, &model.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     token,
		Seq:       model.NewID(),
		CreatedAt: now,
	})
	if err != nil {
		return s.storageFailure(ctx, "reaction.add", apperr.Wrap("reaction.add", err, nil))
	}
	if added {
		s.Events.Dispatch(ctx, reactionEvent(events.ReactionAdded, msg, userID, token, now))
	}
	return nil
}

// Remove deletes the reaction. Removing an absent reaction is a no-op.
func (s *ReactionService) Remove(ctx context.Context, messageID, userID model.ID, emoji string) error {
	token, err := parseEmoji(emoji)
	if err != nil {
		return err
	}
	msg, err := s.readable(ctx, "reaction.remove", messageID, userID)
	if err != nil {
		return err
	}

	removed, err := s.Store.Reactions.Remove(ctx, messageID, userID, token)
	if err != nil {
		return s.storageFailure(ctx, "reaction.remove", apperr.Wrap("reaction.remove", err, nil))
	}
	if removed {
		s.Events.Dispatch(ctx, reactionEvent(events.ReactionRemoved, msg, userID, token, s.Clock.Now()))
	}
	return nil
}

// Aggregate groups the message's reactions by emoji in order of first
// appearance, marking the groups the viewer belongs to.
func (s *ReactionService) Aggregate(ctx context.Context, messageID, viewerID model.ID) ([]model.ReactionSummary, error) {
	if _, err := s.readable(ctx, "reaction.aggregate", messageID, viewerID); err != nil {
		return nil, err
	}
	reactions, err := s.Store.Reactions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, "reaction.aggregate", apperr.Wrap("reaction.aggregate", err, nil))
	}
	return summarize(reactions, viewerID), nil
}

// Mentions lists the users the message mentioned when it was posted.
func (s *ReactionService) Mentions(ctx context.Context, messageID, viewerID model.ID) ([]model.ID, error) {
	if _, err := s.readable(ctx, "mention.list", messageID, viewerID); err != nil {
		return nil, err
	}
	mentions, err := s.Store.Mentions.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, "mention.list", apperr.Wrap("mention.list", err, nil))
	}
	return mentionedUsers(mentions), nil
}

func (s *ReactionService) readable(ctx context.Context, op string, messageID, userID model.ID) (*model.Message, error) {
	msg, err := s.Store.Messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, s.storageFailure(ctx, op, apperr.Wrap(op, err, ErrMessageNotFound))
	}
	ok, err := s.Gate.CanReadChannel(ctx, userID, msg.ChannelID)
	if err := check(ok, err, ErrCannotRead); err != nil {
		return nil, s.storageFailure(ctx, op, err)
	}
	return msg, nil
}

// summarize expects reactions in insertion order.
func summarize(reactions []*model.Reaction, viewerID model.ID) []model.ReactionSummary {
	summaries := make([]model.ReactionSummary, 0)
	index := make(map[model.Emoji]int)
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(summaries)
			index[r.Emoji] = i
			summaries = append(summaries, model.ReactionSummary{Emoji: r.Emoji})
		}
		summaries[i].Count++
		if r.UserID == viewerID {
			summaries[i].HasReacted = true
		}
	}
	return summaries
}

func mentionedUsers(mentions []*model.Mention) []model.ID {
	ids := make([]model.ID, len(mentions))
	for i, m := range mentions {
		ids[i] = m.UserID
	}
	return ids
}

func parseEmoji(s string) (model.Emoji, error) {
	if !utils.ValidateText(s, model.MaxEmojiRunes) || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", ErrInvalidEmoji
	}
	return model.Emoji(s), nil
}

func reactionEvent(typ events.Type, msg *model.Message, userID model.ID, emoji model.Emoji, at time.Time) *events.Event {
	return &events.Event{
		Type:      typ,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    userID,
		At:        at,
		Attrs:     map[string]any{"emoji": string(emoji)},
	}
}
