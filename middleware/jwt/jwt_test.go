package jwt

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
)

func TestNewTokenManager(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)
	require.NotNil(t, tm)
	assert.Equal(t, "test-secret", string(tm.secret))
	assert.Equal(t, 24*time.Hour, tm.expireDur)
}

func TestVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)
	userID := model.NewID()

	token, err := tm.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := tm.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerify_InvalidToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "not.a.valid.token"},
		{name: "random string", token: "randomstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret1", 24).GenerateToken(model.NewID())
	require.NoError(t, err)

	_, err = NewTokenManager("secret2", 24).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)
	issued := time.Now()
	tm.now = func() time.Time { return issued }

	token, err := tm.GenerateToken(model.NewID())
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_NotYetValid(t *testing.T) {
	tm := NewTokenManager("test-secret", 1)
	issued := time.Now()
	tm.now = func() time.Time { return issued.Add(time.Hour) }

	token, err := tm.GenerateToken(model.NewID())
	require.NoError(t, err)

	tm.now = func() time.Time { return issued }
	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestVerify_NonIDSubject(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)
	claims := Claims{
		UserID: "user123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	tm := NewTokenManager("test-secret", 24)

	done := make(chan bool)
	for range 10 {
		go func() {
			id := model.NewID()
			token, err := tm.GenerateToken(id)
			if err != nil {
				t.Errorf("GenerateToken failed: %v", err)
			}
			got, err := tm.Verify(context.Background(), token)
			if err != nil || got != id {
				t.Errorf("Verify failed: %v", err)
			}
			done <- true
		}()
	}

	for range 10 {
		<-done
	}
}
