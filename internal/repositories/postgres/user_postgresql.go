package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return conn(ctx, u.db, tx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, u.db, tx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, u.db, tx).First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := conn(ctx, u.db, tx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (u *UserPostgreSQL) ListByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	var users []*models.User
	err := conn(ctx, u.db, tx).
		Where("role = ?", role).
		Order("first_name ASC, last_name ASC").
		Find(&users).Error
	return users, err
}

func (u *UserPostgreSQL) TouchLastLogin(ctx context.Context, tx *gorm.DB, id string) error {
	return conn(ctx, u.db, tx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
}
