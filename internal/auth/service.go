// Package auth handles role-scoped accounts and session tokens. A user holds
// exactly one role; signing in under the other role is refused before any
// token is issued.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"
)

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Revoker remembers signed-out token ids
type Revoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Session is what a successful sign-up or sign-in returns
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type Service struct {
	users     UserStore
	tokens    *TokenManager
	revoker   Revoker
	observers []Observer
}

func NewService(users UserStore, tokens *TokenManager, revoker Revoker, observers ...Observer) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		revoker:   revoker,
		observers: observers,
	}
}

// SignUp registers a new account under role and signs it in
func (s *Service) SignUp(ctx context.Context, email, password string, role models.Role) (*Session, error) {
	email = strings.TrimSpace(email)
	if !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, UserType: role}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// SignIn checks credentials and that the account holds the requested role
func (s *Service) SignIn(ctx context.Context, email, password string, role models.Role) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Auth(apperr.ReasonInvalidCredentials, "invalid email or password", nil)
	}
	if err != nil {
		return nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Auth(apperr.ReasonInvalidCredentials, "invalid email or password", nil)
	}
	if user.UserType != role {
		return nil, apperr.Auth(apperr.ReasonWrongRole,
			fmt.Sprintf("this account is registered as a %s", user.UserType), nil)
	}
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.UserType)
	if err != nil {
		return nil, err
	}
	for _, o := range s.observers {
		o.OnSignedIn(ctx, user)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Authenticate turns a bearer token into claims, refusing revoked tokens
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Auth(apperr.ReasonSessionInvalid, "session revoked", nil)
	}
	return claims, nil
}

// SignOut revokes the token until it would have expired anyway
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	userID, _ := claims.UserID()
	for _, o := range s.observers {
		o.OnSignedOut(ctx, userID, claims.Role)
	}
	return nil
}
