package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	CreatedBy *string `json:"created_by"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
}

type ReportFilters struct {
	Status models.ReportStatus `json:"status"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====
// Every method accepts an optional transaction; nil runs on the root
// connection.

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error)
	ListByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error)
	TouchLastLogin(ctx context.Context, tx *gorm.DB, id string) error
}

type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	// GetByID loads the test with its questions in authored order.
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error)
	// Update saves the title and replaces the question set.
	Update(ctx context.Context, tx *gorm.DB, test *models.Test) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteQuestion(ctx context.Context, tx *gorm.DB, testID, questionID string) error
	// List returns tests newest first.
	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, error)
}

type ResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.TestResult) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResult, error)
	// GetByStudentAndTest returns every stored result of the pair, best
	// first. forUpdate locks the rows until the transaction ends.
	GetByStudentAndTest(ctx context.Context, tx *gorm.DB, studentID, testID string, forUpdate bool) ([]*models.TestResult, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []string) error
	// ListByStudent returns results newest first.
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TestResult, error)
	ListByTest(ctx context.Context, tx *gorm.DB, testID string) ([]*models.TestResult, error)
	CountByTests(ctx context.Context, tx *gorm.DB, testIDs []string) (map[string]int, error)
	MarkTestDeleted(ctx context.Context, tx *gorm.DB, testID string) error
}

type ReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *models.QuestionReport) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuestionReport, error)
	// ListByTeacher returns reports newest first.
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters ReportFilters) ([]*models.QuestionReport, error)
	UpdateResolution(ctx context.Context, tx *gorm.DB, id string, response string, resolved bool) error
}

type ChatRepository interface {
	Create(ctx context.Context, tx *gorm.DB, chat *models.Chat) error
	// GetByID loads a chat. forUpdate locks the row until the transaction ends.
	GetByID(ctx context.Context, tx *gorm.DB, id string, forUpdate bool) (*models.Chat, error)
	Save(ctx context.Context, tx *gorm.DB, chat *models.Chat) error
	// ListByParticipant returns the user's chats, most recently updated first.
	ListByParticipant(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Chat, error)
}

// Repository aggregates every repository and owns transactions
type Repository interface {
	User() UserRepository
	Test() TestRepository
	Result() ResultRepository
	Report() ReportRepository
	Chat() ChatRepository

	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IsNotFoundError reports whether err means the record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
