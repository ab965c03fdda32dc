package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/auth"
	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/repository"
)

// Client-facing login failures.
const (
	MsgMissingCredentials = "Missing credentials"
	MsgInvalidCredentials = "Invalid credentials"
)

// AuthService handles login, account lookup and token checks.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned after a successful login.
type AuthResult struct {
	User  *model.User
	Token string
}

// Login verifies email and password. An email seen for the first time
// registers a new account with that password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", MsgMissingCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.checkPassword(user, password); err != nil {
			return nil, err
		}
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.register(ctx, email, password)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	return s.issue(user)
}

func (s *AuthService) register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("Password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// Another request registered this email first; log in against it.
		existing, getErr := s.users.GetUserByEmail(ctx, email)
		if getErr != nil {
			return nil, fmt.Errorf("service/auth: re-reading user %s: %w", email, getErr)
		}
		if err := s.checkPassword(existing, password); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

func (s *AuthService) checkPassword(user *model.User, password string) error {
	err := s.passwords.Verify(user.PasswordHash, password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrPasswordTooLong):
		return apperror.ValidationFailed("credentials", MsgInvalidCredentials)
	default:
		return fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}
}

// LoginGitHub finds or creates the account for a GitHub identity, keyed by
// its email. Accounts created this way have no password.
func (s *AuthService) LoginGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	email := ghUser.AccountEmail()

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &model.User{Email: email}
		err = s.users.CreateUser(ctx, user)
		if errors.Is(err, apperror.ErrConflict) {
			user, err = s.users.GetUserByEmail(ctx, email)
		} else if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.String("userID", user.ID),
				slog.String("login", ghUser.Login),
			)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving GitHub user %s: %w", ghUser.Login, err)
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account for id, or apperror.ErrNotFound.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}
