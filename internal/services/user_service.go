package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/jinzhu/copier"
)

type UserProfile struct {
	ID          string          `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Contact is a user of the opposite role the caller can chat with.
type Contact struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	Unread int             `json:"unread"`
	Badge  string          `json:"badge"`
}

type UserService interface {
	Me(ctx context.Context, userID string) (*UserProfile, error)
	// Contacts lists users of the opposite role with unread message counts.
	Contacts(ctx context.Context, userID string) ([]*Contact, error)
}

type userService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Me(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUserProfile(user), nil
}

func (s *userService) Contacts(ctx context.Context, userID string) ([]*Contact, error) {
	me, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	opposite := models.RoleTeacher
	if me.Role == models.RoleTeacher {
		opposite = models.RoleStudent
	}
	users, err := s.repo.User().ListByRole(ctx, nil, opposite)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	chats, err := s.repo.Chat().ListByParticipant(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	unread := make(map[string]int, len(chats))
	for _, chat := range chats {
		unread[chat.OtherParticipant(userID)] = chat.UnreadFor(userID)
	}

	contacts := make([]*Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, &Contact{
			ID:     u.ID,
			Name:   u.FullName(),
			Email:  u.Email,
			Role:   u.Role,
			Unread: unread[u.ID],
			Badge:  BadgeText(unread[u.ID]),
		})
	}
	return contacts, nil
}

func toUserProfile(user *models.User) *UserProfile {
	profile := &UserProfile{}
	_ = copier.Copy(profile, user)
	return profile
}
