package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orbitus-api/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrTooManyAttempts     = errors.New("too many login attempts, try again later")
)

// LoginLimiter throttles login attempts per key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	repo       *Repository
	tokens     *TokenManager
	refreshTTL time.Duration
	limiter    LoginLimiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewService builds the auth service. limiter may be nil to disable throttling.
func NewService(repo *Repository, tokens *TokenManager, refreshTTL time.Duration, limiter LoginLimiter, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
	}
}

// Login authenticates a teacher and returns tokens
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	limitKey := "login:" + email
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, limitKey)
		if err != nil {
			// Fail open.
			s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
		} else if !allowed {
			s.metrics.RecordLoginAttempt(ctx, "throttled")
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.RecordLoginAttempt(ctx, "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLoginAttempt(ctx, "failure")
		return nil, ErrInvalidCredentials
	}

	s.metrics.RecordLoginAttempt(ctx, "success")
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, limitKey); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login limiter", "error", err)
		}
	}

	if err := s.repo.DeleteExpiredTokens(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to delete expired refresh tokens", "error", err)
	}

	return s.generateTokenPair(ctx, user)
}

// RefreshAccessToken rotates the refresh token and issues a new access token
func (s *Service) RefreshAccessToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	refreshToken, err := s.repo.GetRefreshToken(ctx, refreshTokenString)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.GetUserByID(ctx, refreshToken.TeacherUserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if err := s.repo.DeleteRefreshToken(ctx, refreshTokenString); err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.generateTokenPair(ctx, user)
}

// Logout invalidates refresh token
func (s *Service) Logout(ctx context.Context, refreshTokenString string) error {
	err := s.repo.DeleteRefreshToken(ctx, refreshTokenString)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	return err
}

func (s *Service) generateTokenPair(ctx context.Context, user *TeacherUser) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.refreshTTL)
	if err := s.repo.CreateRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

// HashPassword is used when provisioning teacher accounts.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
