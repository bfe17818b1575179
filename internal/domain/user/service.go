package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/auth"
	"github.com/healthcare/healthcare-api/internal/platform/db"
)

const (
	msgRegistered     = "User registered successfully"
	msgBadCredentials = "No active account found with the given credentials"
	msgBadRefresh     = "Token is invalid or expired"

	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "user with this email already exists."
	msgPhoneTaken    = "user with this phone already exists."
)

var msgPasswordTooLong = fmt.Sprintf("Ensure this field has no more than %d bytes.", auth.MaxPasswordBytes)

// TokenIssuer is the token side of the auth service. *auth.TokenManager
// implements it.
type TokenIssuer interface {
	IssuePair(id auth.Identity) (auth.TokenPair, error)
	IssueAccess(id auth.Identity) (string, error)
	ParseRefresh(tokenStr string) (*auth.Claims, error)
}

// Hasher hashes and checks passwords. *auth.PasswordHasher implements it; an
// empty hash must still cost a full comparison.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Service registers users and exchanges credentials for tokens.
type Service struct {
	users  Repository
	tx     db.Transactor
	hasher Hasher
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewService(users Repository, tx db.Transactor, hasher Hasher, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, tx: tx, hasher: hasher, tokens: tokens, logger: logger}
}

// Register creates an account and returns it together with a fresh token
// pair. Taken usernames, emails (case-insensitive) and phones are reported
// per field.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.Normalize()
	if len(req.Password) > auth.MaxPasswordBytes {
		return nil, apierror.Validation("password", msgPasswordTooLong)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Phone:    req.Phone,
		Role:     req.Role,
		IsActive: true,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkAvailable(ctx, req); err != nil {
			return err
		}
		return s.users.Create(ctx, u)
	})
	if err != nil {
		return nil, uniqueViolationToField(err)
	}

	tokens, err := s.tokens.IssuePair(u.Identity())
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return &RegisterResponse{User: u.Public(), Message: msgRegistered, Tokens: tokens}, nil
}

func (s *Service) checkAvailable(ctx context.Context, req RegisterRequest) error {
	fe := apierror.FieldErrors{}

	taken, err := s.users.UsernameExists(ctx, req.Username)
	if err != nil {
		return err
	}
	if taken {
		fe.Add("username", msgUsernameTaken)
	}

	taken, err = s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return err
	}
	if taken {
		fe.Add("email", msgEmailTaken)
	}

	if req.Phone != nil {
		taken, err = s.users.PhoneExists(ctx, *req.Phone)
		if err != nil {
			return err
		}
		if taken {
			fe.Add("phone", msgPhoneTaken)
		}
	}
	return fe.Err()
}

// uniqueViolationToField maps a unique violation from a concurrent
// registration onto the same field error the pre-check would have produced.
func uniqueViolationToField(err error) error {
	switch {
	case db.IsUniqueViolation(err, constraintUsername):
		return apierror.Validation("username", msgUsernameTaken)
	case db.IsUniqueViolation(err, constraintEmail):
		return apierror.Validation("email", msgEmailTaken)
	case db.IsUniqueViolation(err, constraintPhone):
		return apierror.Validation("phone", msgPhoneTaken)
	}
	return err
}

// Login checks credentials by case-insensitive email. Unknown email, wrong
// password and inactive account all fail the same way.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrNotFound) {
		// Same bcrypt work as a known account.
		s.hasher.Compare("", req.Password)
		return nil, apierror.Authentication(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Compare(u.Password, req.Password) || !u.IsActive {
		s.logger.Warn().Str("user_id", u.ID.String()).Msg("login rejected")
		return nil, apierror.Authentication(msgBadCredentials)
	}

	pair, err := s.tokens.IssuePair(u.Identity())
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    LoginUser{ID: u.ID, Email: u.Email, Role: u.Role},
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// account must still exist and be active.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := s.tokens.ParseRefresh(req.Refresh)
	if err != nil {
		return nil, apierror.Authentication(msgBadRefresh)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apierror.Authentication(msgBadRefresh)
	}

	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.Authentication(msgBadRefresh)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apierror.Authentication(msgBadRefresh)
	}

	access, err := s.tokens.IssueAccess(u.Identity())
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{Access: access}, nil
}
