package postgres

import (
	"context"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

func (r *ReportPostgreSQL) Create(ctx context.Context, tx *gorm.DB, report *models.QuestionReport) error {
	return conn(ctx, r.db, tx).Create(report).Error
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuestionReport, error) {
	var report models.QuestionReport
	if err := conn(ctx, r.db, tx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.ReportFilters) ([]*models.QuestionReport, error) {
	query := conn(ctx, r.db, tx).
		Where("teacher_id = ?", teacherID).
		Order("reported_at DESC")

	switch filters.Status {
	case models.ReportStatusPending:
		query = query.Where("resolved = ?", false)
	case models.ReportStatusResolved:
		query = query.Where("resolved = ?", true)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var reports []*models.QuestionReport
	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *ReportPostgreSQL) UpdateResolution(ctx context.Context, tx *gorm.DB, id string, response string, resolved bool) error {
	result := conn(ctx, r.db, tx).
		Model(&models.QuestionReport{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"teacher_response": response,
			"resolved":         resolved,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
