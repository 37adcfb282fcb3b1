package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/session"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
)

// ServiceManager gives handlers access to every service
type ServiceManager interface {
	Auth() AuthService
	User() UserService
	Test() TestService
	Result() ResultService
	Statistics() StatisticsService
	Report() ReportService
	Chat() ChatService
	Export() ExportService
}

type Dependencies struct {
	Repo          repositories.Repository
	Cache         cache.CacheService
	Sessions      session.Store
	Identity      auth.IdentityProvider
	Publisher     events.EventPublisher
	Broker        *events.LiveBroker
	Validator     *validator.Validator
	Logger        *slog.Logger
	StatsCacheTTL time.Duration
}

type serviceManager struct {
	auth       AuthService
	user       UserService
	test       TestService
	result     ResultService
	statistics StatisticsService
	report     ReportService
	chat       ChatService
	export     ExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{
		auth:       NewAuthService(deps.Repo, deps.Identity, deps.Sessions, deps.Validator, deps.Logger),
		user:       NewUserService(deps.Repo, deps.Logger),
		test:       NewTestService(deps.Repo, deps.Cache, deps.Publisher, deps.Validator, deps.Logger),
		result:     NewResultService(deps.Repo, deps.Cache, deps.Publisher, deps.Validator, deps.Logger),
		statistics: NewStatisticsService(deps.Repo, deps.Cache, deps.StatsCacheTTL, deps.Logger),
		report:     NewReportService(deps.Repo, deps.Publisher, deps.Validator, deps.Logger),
		chat:       NewChatService(deps.Repo, deps.Broker, deps.Publisher, deps.Validator, deps.Logger),
		export:     NewExportService(deps.Repo, deps.Logger),
	}
}

func (m *serviceManager) Auth() AuthService             { return m.auth }
func (m *serviceManager) User() UserService             { return m.user }
func (m *serviceManager) Test() TestService             { return m.test }
func (m *serviceManager) Result() ResultService         { return m.result }
func (m *serviceManager) Statistics() StatisticsService { return m.statistics }
func (m *serviceManager) Report() ReportService         { return m.report }
func (m *serviceManager) Chat() ChatService             { return m.chat }
func (m *serviceManager) Export() ExportService         { return m.export }
