package postgres

import (
	"context"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.TestResult) error {
	return conn(ctx, r.db, tx).Create(result).Error
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResult, error) {
	var result models.TestResult
	if err := conn(ctx, r.db, tx).First(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetByStudentAndTest(ctx context.Context, tx *gorm.DB, studentID, testID string, forUpdate bool) ([]*models.TestResult, error) {
	query := conn(ctx, r.db, tx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("score DESC")
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var results []*models.TestResult
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ResultPostgreSQL) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Where("id IN ?", ids).Delete(&models.TestResult{}).Error
}

func (r *ResultPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TestResult, error) {
	var results []*models.TestResult
	err := conn(ctx, r.db, tx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&results).Error
	return results, err
}

func (r *ResultPostgreSQL) ListByTest(ctx context.Context, tx *gorm.DB, testID string) ([]*models.TestResult, error) {
	var results []*models.TestResult
	err := conn(ctx, r.db, tx).
		Where("test_id = ?", testID).
		Order("submitted_at DESC").
		Find(&results).Error
	return results, err
}

func (r *ResultPostgreSQL) CountByTests(ctx context.Context, tx *gorm.DB, testIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(testIDs))
	if len(testIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TestID string
		Count  int
	}
	err := conn(ctx, r.db, tx).
		Model(&models.TestResult{}).
		Select("test_id, COUNT(*) AS count").
		Where("test_id IN ?", testIDs).
		Group("test_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TestID] = row.Count
	}
	return counts, nil
}

func (r *ResultPostgreSQL) MarkTestDeleted(ctx context.Context, tx *gorm.DB, testID string) error {
	return conn(ctx, r.db, tx).
		Model(&models.TestResult{}).
		Where("test_id = ?", testID).
		Update("test_deleted", true).Error
}
