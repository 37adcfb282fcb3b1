package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/session"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// ===== REPOSITORY MOCKS =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	args := m.Called(ctx, tx, ids)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	args := m.Called(ctx, tx, role)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, tx *gorm.DB, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	args := m.Called(ctx, tx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Test, error) {
	args := m.Called(ctx, tx, id)
	test, _ := args.Get(0).(*models.Test)
	return test, args.Error(1)
}

func (m *MockTestRepository) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	args := m.Called(ctx, tx, test)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockTestRepository) DeleteQuestion(ctx context.Context, tx *gorm.DB, testID, questionID string) error {
	args := m.Called(ctx, tx, testID, questionID)
	return args.Error(0)
}

func (m *MockTestRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, error) {
	args := m.Called(ctx, tx, filters)
	tests, _ := args.Get(0).([]*models.Test)
	return tests, args.Error(1)
}

type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.TestResult) error {
	args := m.Called(ctx, tx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TestResult, error) {
	args := m.Called(ctx, tx, id)
	result, _ := args.Get(0).(*models.TestResult)
	return result, args.Error(1)
}

func (m *MockResultRepository) GetByStudentAndTest(ctx context.Context, tx *gorm.DB, studentID, testID string, forUpdate bool) ([]*models.TestResult, error) {
	args := m.Called(ctx, tx, studentID, testID, forUpdate)
	results, _ := args.Get(0).([]*models.TestResult)
	return results, args.Error(1)
}

func (m *MockResultRepository) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []string) error {
	args := m.Called(ctx, tx, ids)
	return args.Error(0)
}

func (m *MockResultRepository) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TestResult, error) {
	args := m.Called(ctx, tx, studentID)
	results, _ := args.Get(0).([]*models.TestResult)
	return results, args.Error(1)
}

func (m *MockResultRepository) ListByTest(ctx context.Context, tx *gorm.DB, testID string) ([]*models.TestResult, error) {
	args := m.Called(ctx, tx, testID)
	results, _ := args.Get(0).([]*models.TestResult)
	return results, args.Error(1)
}

func (m *MockResultRepository) CountByTests(ctx context.Context, tx *gorm.DB, testIDs []string) (map[string]int, error) {
	args := m.Called(ctx, tx, testIDs)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

func (m *MockResultRepository) MarkTestDeleted(ctx context.Context, tx *gorm.DB, testID string) error {
	args := m.Called(ctx, tx, testID)
	return args.Error(0)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, tx *gorm.DB, report *models.QuestionReport) error {
	args := m.Called(ctx, tx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.QuestionReport, error) {
	args := m.Called(ctx, tx, id)
	report, _ := args.Get(0).(*models.QuestionReport)
	return report, args.Error(1)
}

func (m *MockReportRepository) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.ReportFilters) ([]*models.QuestionReport, error) {
	args := m.Called(ctx, tx, teacherID, filters)
	reports, _ := args.Get(0).([]*models.QuestionReport)
	return reports, args.Error(1)
}

func (m *MockReportRepository) UpdateResolution(ctx context.Context, tx *gorm.DB, id string, response string, resolved bool) error {
	args := m.Called(ctx, tx, id, response, resolved)
	return args.Error(0)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, tx *gorm.DB, chat *models.Chat) error {
	args := m.Called(ctx, tx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) GetByID(ctx context.Context, tx *gorm.DB, id string, forUpdate bool) (*models.Chat, error) {
	args := m.Called(ctx, tx, id, forUpdate)
	chat, _ := args.Get(0).(*models.Chat)
	return chat, args.Error(1)
}

func (m *MockChatRepository) Save(ctx context.Context, tx *gorm.DB, chat *models.Chat) error {
	args := m.Called(ctx, tx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) ListByParticipant(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Chat, error) {
	args := m.Called(ctx, tx, userID)
	chats, _ := args.Get(0).([]*models.Chat)
	return chats, args.Error(1)
}

// MockRepository runs transactions inline with a nil handle.
type MockRepository struct {
	users   *MockUserRepository
	tests   *MockTestRepository
	results *MockResultRepository
	reports *MockReportRepository
	chats   *MockChatRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		users:   &MockUserRepository{},
		tests:   &MockTestRepository{},
		results: &MockResultRepository{},
		reports: &MockReportRepository{},
		chats:   &MockChatRepository{},
	}
}

func (m *MockRepository) User() repositories.UserRepository     { return m.users }
func (m *MockRepository) Test() repositories.TestRepository     { return m.tests }
func (m *MockRepository) Result() repositories.ResultRepository { return m.results }
func (m *MockRepository) Report() repositories.ReportRepository { return m.reports }
func (m *MockRepository) Chat() repositories.ChatRepository     { return m.chats }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// ===== COLLABORATOR MOCKS =====

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Register(ctx context.Context, input auth.NewIdentity) (*auth.Identity, error) {
	args := m.Called(ctx, input)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) ExchangeCode(ctx context.Context, code, state string) (*auth.Identity, error) {
	args := m.Called(ctx, code, state)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) VerifyToken(ctx context.Context, accessToken string) (*auth.Identity, error) {
	args := m.Called(ctx, accessToken)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID, email string, role models.UserRole, rememberMe bool) (*session.Session, error) {
	args := m.Called(ctx, userID, email, role, rememberMe)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	args := m.Called(ctx, token)
	sess, _ := args.Get(0).(*session.Session)
	return sess, args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// memoryCache is a CacheService backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== FIXTURES =====

func sampleTest(id, teacherID string) *models.Test {
	return &models.Test{
		ID:        id,
		Title:     "Go basics",
		CreatedBy: teacherID,
		Questions: []models.Question{
			{ID: "q1", TestID: id, Position: 0, Text: "Zero value of int?", Options: []string{"0", "nil", "1"}, CorrectOptionIndex: 0, Points: 10},
			{ID: "q2", TestID: id, Position: 1, Text: "Keyword for goroutines?", Options: []string{"async", "go", "spawn", "run"}, CorrectOptionIndex: 1, Points: 10},
			{ID: "q3", TestID: id, Position: 2, Text: "Map lookup returns?", Options: []string{"value", "value, ok"}, CorrectOptionIndex: 1, Points: 10},
			{ID: "q4", TestID: id, Position: 3, Text: "Slices are?", Options: []string{"arrays", "views"}, CorrectOptionIndex: 1, Points: 10},
		},
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}
