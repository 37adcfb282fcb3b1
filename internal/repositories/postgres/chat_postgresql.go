package postgres

import (
	"context"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatPostgreSQL struct {
	db *gorm.DB
}

func NewChatPostgreSQL(db *gorm.DB) repositories.ChatRepository {
	return &ChatPostgreSQL{db: db}
}

// Create inserts the chat unless a concurrent request already did
func (c *ChatPostgreSQL) Create(ctx context.Context, tx *gorm.DB, chat *models.Chat) error {
	return conn(ctx, c.db, tx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(chat).Error
}

func (c *ChatPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string, forUpdate bool) (*models.Chat, error) {
	query := conn(ctx, c.db, tx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var chat models.Chat
	if err := query.First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *ChatPostgreSQL) Save(ctx context.Context, tx *gorm.DB, chat *models.Chat) error {
	return conn(ctx, c.db, tx).
		Model(chat).
		Select("participant_names", "messages", "last_updated").
		Updates(chat).Error
}

func (c *ChatPostgreSQL) ListByParticipant(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Chat, error) {
	var chats []*models.Chat
	err := conn(ctx, c.db, tx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_updated DESC").
		Find(&chats).Error
	return chats, err
}
