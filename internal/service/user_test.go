package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.svc.Users.Register(ctx, &RegisterRequest{Username: "new_user", Email: " New@Example.com ", DisplayName: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, model.StatusOffline, user.Status)

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"taken username", RegisterRequest{Username: "new_user", Email: "other@example.com"}, ErrUserAlreadyExists},
		{"taken email", RegisterRequest{Username: "other", Email: "new@example.com"}, ErrUserAlreadyExists},
		{"bad username", RegisterRequest{Username: "no spaces", Email: "x@example.com"}, ErrInvalidUsername},
		{"bad email", RegisterRequest{Username: "fine", Email: "nope"}, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Users.Register(ctx, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Users.UpdateStatus(ctx, h.member.ID, model.StatusDND))
	got, err := h.svc.Users.Get(ctx, h.member.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDND, got.Status)

	assert.ErrorIs(t, h.svc.Users.UpdateStatus(ctx, h.member.ID, 0), ErrInvalidStatus)
	assert.ErrorIs(t, h.svc.Users.UpdateStatus(ctx, model.NewID(), model.StatusIdle), ErrUserNotFound)

	_, err = h.svc.Users.Get(ctx, model.NewID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterLosingRaceIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// another registration commits between the duplicate check and the insert
	raced := false
	err := h.deps.Store.DB().Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		user, ok := tx.Statement.Dest.(*model.User)
		if !ok || raced || user.Username != "racer" {
			return
		}
		raced = true
		winner := &model.User{ID: model.NewID(), Username: "racer", Email: "winner@example.com", Status: model.StatusOffline, CreatedAt: epoch, UpdatedAt: epoch}
		_ = tx.AddError(tx.Session(&gorm.Session{NewDB: true}).Create(winner).Error)
	})
	require.NoError(t, err)

	_, err = h.svc.Users.Register(ctx, &RegisterRequest{Username: "racer", Email: "loser@example.com"})
	require.True(t, raced)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.NotErrorIs(t, err, apperr.ErrTransientStorage)
}
