package service

import (
	"context"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/repository"
)

// pointerMaintainer keeps Channel.LastMessageID equal to the channel's
// newest surviving message. Both entry points run on the transaction of the
// ledger write that triggered them.
type pointerMaintainer struct{}

// advance moves the pointer to msg unless a newer message already holds it,
// so appends committing out of order still leave the maximum.
func (pointerMaintainer) advance(ctx context.Context, tx *repository.Store, msg *model.Message) error {
	if _, err := tx.Channels.AdvancePointer(ctx, msg.ChannelID, msg.ID, msg.CreatedAt); err != nil {
		return apperr.Wrap("pointer.advance", err, nil)
	}
	return nil
}

// recede recomputes the pointer from the surviving messages while holding
// the channel row, serialising it against concurrent appends and deletes.
func (pointerMaintainer) recede(ctx context.Context, tx *repository.Store, channelID model.ID) error {
	if _, err := tx.Channels.FindByIDForUpdate(ctx, channelID); err != nil {
		return apperr.Wrap("pointer.recede", err, ErrChannelNotFound)
	}
	latest, err := tx.Messages.Latest(ctx, channelID)
	if err != nil {
		return apperr.Wrap("pointer.recede", err, nil)
	}
	if err := tx.Channels.SetPointer(ctx, channelID, latest); err != nil {
		return apperr.Wrap("pointer.recede", err, nil)
	}
	return nil
}
