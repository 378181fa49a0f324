package auth

import (
	"context"
	"fmt"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type AdminChecker interface {
	IsAdmin(userID int64) bool
}

type UserRegistrar interface {
	Register(ctx context.Context, user TelegramUser, isAdmin bool, now time.Time) error
}

type Service struct {
	jwt      *JWTManager
	admins   AdminChecker
	users    UserRegistrar
	botToken string
	now      func() time.Time
}

type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      int64
	Role        string
}

func NewService(jwtManager *JWTManager, admins AdminChecker, botToken string) *Service {
	return &Service{
		jwt:      jwtManager,
		admins:   admins,
		botToken: botToken,
		now:      time.Now,
	}
}

// AttachRegistrar makes logins register the user on first contact, the
// same way the bot does on its own updates.
func (s *Service) AttachRegistrar(users UserRegistrar) {
	s.users = users
}

func (s *Service) LoginTelegram(ctx context.Context, initData string) (AuthResult, error) {
	if s.jwt == nil {
		return AuthResult{}, fmt.Errorf("jwt manager is not configured")
	}

	user, err := ValidateTelegramInitData(s.botToken, initData)
	if err != nil {
		return AuthResult{}, err
	}

	role := RoleUser
	isAdmin := s.admins != nil && s.admins.IsAdmin(user.ID)
	if isAdmin {
		role = RoleAdmin
	}

	if s.users != nil {
		if err := s.users.Register(ctx, user, isAdmin, s.now().UTC()); err != nil {
			return AuthResult{}, fmt.Errorf("register user on login: %w", err)
		}
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, role)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Role:        role,
	}, nil
}

func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (AccessClaims, error) {
	if s.jwt == nil {
		return AccessClaims{}, fmt.Errorf("jwt manager is not configured")
	}
	return s.jwt.ParseAccessToken(accessToken)
}
