package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorIs(t *testing.T) {
	errMessageNotFound := New(KindNotFound, "message not found")

	t.Run("named sentinel matches kind sentinel", func(t *testing.T) {
		assert.ErrorIs(t, errMessageNotFound, ErrNotFound)
		assert.NotErrorIs(t, errMessageNotFound, ErrForbidden)
	})

	t.Run("wrapped error keeps its identity", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", Wrap("message.get", errMessageNotFound, nil))
		assert.ErrorIs(t, err, errMessageNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("different message does not match", func(t *testing.T) {
		other := New(KindNotFound, "channel not found")
		assert.NotErrorIs(t, errMessageNotFound, other)
	})
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, kind: KindNotFound},
		{name: "context cancelled", err: context.Canceled, kind: KindTransientStorage},
		{name: "deadline", err: context.DeadlineExceeded, kind: KindTransientStorage},
		{name: "driver failure", err: errors.New("connection reset by peer"), kind: KindTransientStorage},
		{name: "typed error", err: ErrExhausted, kind: KindExhausted},
		{name: "duplicate key", err: gorm.ErrDuplicatedKey, kind: KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap("op", tt.err, nil)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap("op", nil, nil))
	})

	t.Run("not found uses supplied sentinel", func(t *testing.T) {
		sentinel := New(KindNotFound, "invite not found")
		err := Wrap("invite.get", gorm.ErrRecordNotFound, sentinel)
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestPublicHidesCause(t *testing.T) {
	err := Storage("message.append", errors.New("dial tcp 10.0.0.1:5432: i/o timeout"))

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "storage unavailable", e.Public())
	assert.Contains(t, err.Error(), "i/o timeout")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "exhausted", KindExhausted.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
