package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Gopher0727/occult/internal/apperr"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/utils"
)

var (
	ErrInvalidUsername = apperr.New(apperr.KindValidation, "username must be 3-32 letters, digits or underscores")
	ErrInvalidEmail    = apperr.New(apperr.KindValidation, "invalid email address")
	ErrInvalidStatus   = apperr.New(apperr.KindValidation, "invalid status")
)

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username    string
	Email       string
	DisplayName string
}

// IUserService defines the user record operations. Credentials are handled
// by the authentication collaborator.
type IUserService interface {
	Register(ctx context.Context, req *RegisterRequest) (*model.User, error)
	Get(ctx context.Context, userID model.ID) (*model.User, error)
	UpdateStatus(ctx context.Context, userID model.ID, status model.UserStatus) error
}

type UserService struct {
	*Deps
}

func NewUserService(deps *Deps) IUserService {
	return &UserService{Deps: deps}
}

// Register creates a user that starts offline.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if !utils.ValidateUserName(req.Username) {
		return nil, ErrInvalidUsername
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !utils.ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}

	exists, err := s.Store.Users.Exists(ctx, req.Username, email)
	if err != nil {
		return nil, s.storageFailure(ctx, "user.register", apperr.Wrap("user.register", err, nil))
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	now := s.Clock.Now()
	user := &model.User{
		ID:          model.NewID(),
		Username:    req.Username,
		Email:       email,
		DisplayName: req.DisplayName,
		Status:      model.StatusOffline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Users.Create(ctx, user); err != nil {
		wrapped := apperr.Wrap("user.register", err, nil)
		// a concurrent registration won the unique index
		if apperr.KindOf(wrapped) == apperr.KindConflict {
			return nil, ErrUserAlreadyExists
		}
		return nil, s.storageFailure(ctx, "user.register", wrapped)
	}

	s.Log.DebugContext(ctx, "user registered", zap.Stringer("user_id", user.ID))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID model.ID) (*model.User, error) {
	user, err := s.Store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.storageFailure(ctx, "user.get", apperr.Wrap("user.get", err, ErrUserNotFound))
	}
	return user, nil
}

func (s *UserService) UpdateStatus(ctx context.Context, userID model.ID, status model.UserStatus) error {
	if _, err := status.MarshalText(); err != nil {
		return ErrInvalidStatus
	}
	updated, err := s.Store.Users.UpdateStatus(ctx, userID, status, s.Clock.Now())
	if err != nil {
		return s.storageFailure(ctx, "user.status", apperr.Wrap("user.status", err, nil))
	}
	if !updated {
		return ErrUserNotFound
	}
	return nil
}
