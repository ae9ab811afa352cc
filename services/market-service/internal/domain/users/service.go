package users

import (
	"context"
	"strings"
	"time"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/auth"
)

var (
	ErrCredentialsRequired = apperr.New(apperr.ErrValidation, "username and password are required")
	ErrContactRequired     = apperr.New(apperr.ErrValidation, "a phone number or facebook handle is required")
	ErrInvalidPhone        = apperr.New(apperr.ErrValidation, "phone number must be exactly 10 digits")
	ErrUsernameTaken       = apperr.New(apperr.ErrValidation, "Username already taken")
	ErrInvalidCredentials  = apperr.New(apperr.ErrNotFound, "invalid username or password")
	ErrUserNotFound        = apperr.New(apperr.ErrNotFound, "user not found")
)

type SignupCommand struct {
	Username string
	Password string
	Phone    string
	Facebook string
}

type LoginResult struct {
	User  *User
	Token *auth.AccessToken
}

type Service struct {
	repo   UserRepository
	tokens TokenIssuer
}

func NewService(repo UserRepository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Signup validates and stores a new account.
func (s *Service) Signup(ctx context.Context, cmd SignupCommand) (*User, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Phone = strings.TrimSpace(cmd.Phone)
	cmd.Facebook = strings.TrimSpace(cmd.Facebook)

	if err := validateSignup(cmd); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetUserByUsername(ctx, cmd.Username)
	if err != nil {
		return nil, apperr.Remote("failed to check existing user", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, apperr.Remote("failed to hash password", err)
	}

	user := &User{
		Username:     cmd.Username,
		PasswordHash: hash,
		Phone:        cmd.Phone,
		Facebook:     cmd.Facebook,
		CreatedAt:    time.Now(),
	}

	// Two concurrent signups can both pass the lookup; the repository
	// reports the loser as ErrUsernameTaken.
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, apperr.Remote("failed to create user", err)
	}

	return user, nil
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Remote("failed to get user", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, apperr.Remote("failed to verify password", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.Username)
	if err != nil {
		return nil, apperr.Remote("failed to issue token", err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// GetUser returns the account of username.
func (s *Service) GetUser(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Remote("failed to get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetContactInfo returns the phone and facebook handle of username.
func (s *Service) GetContactInfo(ctx context.Context, username string) (ContactInfo, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return ContactInfo{}, err
	}
	return user.ContactInfo(), nil
}

func validateSignup(cmd SignupCommand) error {
	if cmd.Username == "" || cmd.Password == "" {
		return ErrCredentialsRequired
	}
	if cmd.Phone == "" && cmd.Facebook == "" {
		return ErrContactRequired
	}
	if cmd.Phone != "" && !isTenDigits(cmd.Phone) {
		return ErrInvalidPhone
	}
	return nil
}

func isTenDigits(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
