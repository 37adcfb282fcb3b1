package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/session"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
)

type RegisterRequest struct {
	FirstName string          `json:"first_name" validate:"required,not_blank,max=100"`
	LastName  string          `json:"last_name" validate:"required,not_blank,max=100"`
	Email     string          `json:"email" validate:"required,email,max=255"`
	Password  string          `json:"password" validate:"required,min=6,max=128"`
	Role      models.UserRole `json:"role" validate:"required,user_role"`
}

// LoginRequest carries either an OAuth code (with its state) or an access
// token issued by the identity provider.
type LoginRequest struct {
	Code        string          `json:"code"`
	State       string          `json:"state"`
	AccessToken string          `json:"access_token"`
	Role        models.UserRole `json:"role" validate:"required,user_role"`
	RememberMe  bool            `json:"remember_me"`
}

func (r LoginRequest) ValidateBusiness(v *validator.Validator) ValidationErrors {
	if strings.TrimSpace(r.Code) == "" && strings.TrimSpace(r.AccessToken) == "" {
		return ValidationErrors{*NewValidationError("code", "code or access_token is required", nil)}
	}
	return nil
}

func (r LoginRequest) method() string {
	if strings.TrimSpace(r.AccessToken) != "" {
		return "token"
	}
	return "code"
}

type AuthResponse struct {
	Token      string       `json:"token"`
	ExpiresAt  time.Time    `json:"expires_at"`
	RememberMe bool         `json:"remember_me"`
	User       *UserProfile `json:"user"`
}

type LogoutResponse struct {
	// RememberedEmail is set when the session was opened with remember-me.
	RememberedEmail string `json:"remembered_email,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, token string) (*LogoutResponse, error)
	Session(ctx context.Context, token string) (*session.Session, error)
}

type authService struct {
	repo      repositories.Repository
	identity  auth.IdentityProvider
	sessions  session.Store
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewAuthService(
	repo repositories.Repository,
	identity auth.IdentityProvider,
	sessions session.Store,
	validator *validator.Validator,
	logger *slog.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		identity:  identity,
		sessions:  sessions,
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "auth"),
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (resp *AuthResponse, err error) {
	done := s.ops.Track(ctx, "register", "", "", "user")
	defer func() {
		done(err)
		registrationAttempts.WithLabelValues(attemptStatus(err), string(req.Role)).Inc()
	}()

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.User().GetByEmail(ctx, nil, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	identity, err := s.identity.Register(ctx, auth.NewIdentity{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      string(req.Role),
	})
	if err != nil {
		if errors.Is(err, auth.ErrIdentityExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register identity: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:          identity.UserID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Role:        req.Role,
		LastLoginAt: &now,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.openSession(ctx, user, false)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (resp *AuthResponse, err error) {
	done := s.ops.Track(ctx, "login", "", "", "session")
	defer func() {
		done(err)
		loginAttempts.WithLabelValues(attemptStatus(err), req.method()).Inc()
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var identity *auth.Identity
	if token := strings.TrimSpace(req.AccessToken); token != "" {
		identity, err = s.identity.VerifyToken(ctx, token)
	} else {
		identity, err = s.identity.ExchangeCode(ctx, req.Code, req.State)
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidIdentity) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify identity: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, nil, identity.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Identity exists upstream but was never registered here.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if user.Role != req.Role {
		return nil, ErrRoleMismatch
	}

	if err := s.repo.User().TouchLastLogin(ctx, nil, user.ID); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	return s.openSession(ctx, user, req.RememberMe)
}

func (s *authService) Logout(ctx context.Context, token string) (*LogoutResponse, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}

	resp := &LogoutResponse{}
	if sess.RememberMe {
		resp.RememberedEmail = sess.Email
	}
	s.logger.Info("User logged out", "user_id", sess.UserID)
	return resp, nil
}

func (s *authService) Session(ctx context.Context, token string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

func (s *authService) openSession(ctx context.Context, user *models.User, rememberMe bool) (*AuthResponse, error) {
	sess, err := s.sessions.Create(ctx, user.ID, user.Email, user.Role, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &AuthResponse{
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt,
		RememberMe: sess.RememberMe,
		User:       toUserProfile(user),
	}, nil
}

func attemptStatus(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
