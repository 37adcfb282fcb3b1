package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the test and its questions in one statement batch
func (t *TestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	return conn(ctx, t.db, tx).Create(test).Error
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error) {
	var test models.Test
	err := conn(ctx, t.db, tx).
		Preload("Questions", orderedQuestions).
		First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// Update saves the test row and replaces its questions
func (t *TestPostgreSQL) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	apply := func(db *gorm.DB) error {
		if err := db.Model(test).Select("title", "updated_at").Updates(test).Error; err != nil {
			return fmt.Errorf("failed to update test: %w", err)
		}
		if err := db.Where("test_id = ?", test.ID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to clear questions: %w", err)
		}
		if len(test.Questions) > 0 {
			if err := db.Create(&test.Questions).Error; err != nil {
				return fmt.Errorf("failed to insert questions: %w", err)
			}
		}
		return nil
	}

	if tx != nil {
		return apply(tx.WithContext(ctx))
	}
	return t.db.WithContext(ctx).Transaction(apply)
}

func (t *TestPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := conn(ctx, t.db, tx).Delete(&models.Test{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TestPostgreSQL) DeleteQuestion(ctx context.Context, tx *gorm.DB, testID, questionID string) error {
	result := conn(ctx, t.db, tx).
		Where("test_id = ? AND id = ?", testID, questionID).
		Delete(&models.Question{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, error) {
	query := conn(ctx, t.db, tx).
		Preload("Questions", orderedQuestions).
		Order("created_at DESC")

	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var tests []*models.Test
	if err := query.Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}
