//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"huddle/auth"
	"huddle/errors"
	"huddle/repositories"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"
)

type IAuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (Session, error)
	Login(ctx context.Context, req auth.LoginRequest) (Session, error)
	AnonymousLogin(ctx context.Context) (Session, error)
	Logout(ctx context.Context, userID string) error
	Verify(ctx context.Context, userID string) (repositories.User, error)
	Refresh(userID string) (Token, error)
}

type Token string

// Session is what a successful authentication hands back to the client.
type Session struct {
	Token Token
	User  repositories.User
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenIssuer) IAuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (Session, error) {
	// 1. Validate before any expensive hashing
	if err := auth.ValidateRegister(req); err != nil {
		return Session{}, err
	}

	// 2. The repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist, ErrUserAlreadyExists propagates when the name or email is taken
	user, err := s.userRepository.CreateUser(ctx, repositories.NewUser{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Avatar:       AvatarURL(req.Username),
	})
	if err != nil {
		return Session{}, err
	}

	s.log.Info("New user registered", "username", user.Username, "user", user.ID)
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (Session, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return Session{}, err
	}

	user, err := s.userRepository.GetUserByLogin(ctx, req.Username)
	if err != nil {
		// Same answer for unknown users and wrong passwords
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	if err := s.userRepository.SetUserOnline(ctx, user.ID, true); err != nil {
		s.log.Warn("Failed to mark user online at login", "user", user.ID, "error", err)
	} else {
		user.IsOnline = true
	}

	s.log.Info("User logged in", "username", user.Username, "user", user.ID)
	return s.session(user)
}

// AnonymousLogin creates a throwaway account named Anonymous<digits>.
func (s *AuthService) AnonymousLogin(ctx context.Context) (Session, error) {
	password, err := auth.RandomPassword()
	if err != nil {
		return Session{}, err
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	username := AnonymousUsername(time.Now())
	user, err := s.userRepository.CreateUser(ctx, repositories.NewUser{
		Username:     username,
		PasswordHash: hashedPassword,
		Avatar:       AvatarURL(username),
		IsOnline:     true,
	})
	if err != nil {
		return Session{}, err
	}

	s.log.Info("Anonymous user created", "username", user.Username, "user", user.ID)
	return s.session(user)
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepository.SetUserOnline(ctx, userID, false); err != nil {
		return err
	}
	s.log.Info("User logged out", "user", userID)
	return nil
}

func (s *AuthService) Verify(ctx context.Context, userID string) (repositories.User, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return repositories.User{}, err
	}
	if err != nil {
		return repositories.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Refresh(userID string) (Token, error) {
	token, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) session(user repositories.User) (Session, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{Token: Token(token), User: user}, nil
}

var avatarColors = []string{
	"FF6B6B", "4ECDC4", "45B7D1", "96CEB4", "FFEAA7",
	"DDA0DD", "98D8C8", "F7DC6F", "BB8FCE", "85C1E9",
}

// AvatarURL builds a generated avatar, the background color depends on the name length.
func AvatarURL(username string) string {
	color := avatarColors[len(username)%len(avatarColors)]
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff&size=128&bold=true",
		url.QueryEscape(username), color)
}

// AnonymousUsername is "Anonymous" followed by the last six digits of the
// unix time in milliseconds and a number below 999.
func AnonymousUsername(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("Anonymous%s%d", millis, rand.IntN(999))
}
