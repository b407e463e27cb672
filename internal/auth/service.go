package auth

import (
	"context"
	"errors"
	"time"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

const (
	msgInvalidToken = "Invalid token."
	msgUserInactive = "User inactive or deleted."
)

// Session is the outcome of a successful register or login.
type Session struct {
	Token string
	User  identity.User
}

// Service issues, resolves and revokes bearer tokens.
type Service struct {
	ids    *identity.Service
	idRepo identity.Repository
	tokens TokenRepository
}

func NewService(ids *identity.Service, idRepo identity.Repository, tokens TokenRepository) *Service {
	return &Service{ids: ids, idRepo: idRepo, tokens: tokens}
}

// Register creates the account and mints its first token.
func (s *Service) Register(ctx context.Context, reg identity.Registration) (Session, error) {
	user, err := s.ids.Register(ctx, reg)
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// Login validates credentials and returns the user's token, creating it if needed.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (Session, error) {
	user, err := s.ids.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user identity.User) (Session, error) {
	key, err := GenerateKey()
	if err != nil {
		return Session{}, apperrors.Internal(err)
	}
	token, err := s.tokens.GetOrCreate(ctx, Token{Key: key, UserID: user.ID, CreatedAt: time.Now().UTC()})
	if err != nil {
		return Session{}, apperrors.Internal(err)
	}
	return Session{Token: token.Key, User: user}, nil
}

// Resolve maps a token key to an active user.
func (s *Service) Resolve(ctx context.Context, key string) (identity.User, error) {
	if key == "" {
		return identity.User{}, apperrors.Unauthenticated("")
	}
	token, err := s.tokens.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return identity.User{}, apperrors.Unauthenticated(msgInvalidToken)
		}
		return identity.User{}, apperrors.Internal(err)
	}
	user, err := s.idRepo.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return identity.User{}, apperrors.Unauthenticated(msgUserInactive)
		}
		return identity.User{}, apperrors.Internal(err)
	}
	if !user.IsActive {
		return identity.User{}, apperrors.Unauthenticated(msgUserInactive)
	}
	return user, nil
}

// Logout deletes the token so later requests carrying it are rejected.
func (s *Service) Logout(ctx context.Context, key string) error {
	if err := s.tokens.DeleteByKey(ctx, key); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return apperrors.Unauthenticated(msgInvalidToken)
		}
		return apperrors.Internal(err)
	}
	return nil
}
