package handlers

import (
	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	userHandler       *UserHandler
	testHandler       *TestHandler
	resultHandler     *ResultHandler
	statisticsHandler *StatisticsHandler
	reportHandler     *ReportHandler
	chatHandler       *ChatHandler

	authMiddleware *auth.Middleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *auth.Middleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		testHandler:       NewTestHandler(serviceManager.Test(), serviceManager.Result(), logger),
		resultHandler:     NewResultHandler(serviceManager.Result(), logger),
		statisticsHandler: NewStatisticsHandler(serviceManager.Statistics(), serviceManager.Export(), logger),
		reportHandler:     NewReportHandler(serviceManager.Report(), logger),
		chatHandler:       NewChatHandler(serviceManager.Chat(), logger),
		authMiddleware:    authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	teacherOnly := auth.RequireRole(models.RoleTeacher)
	studentOnly := auth.RequireRole(models.RoleStudent)

	v1 := router.Group("/api/v1")
	{
		// Public auth routes
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/register", hm.authHandler.Register)
			authPublic.POST("/login", hm.authHandler.Login)
		}

		protected := v1.Group("")
		protected.Use(hm.authMiddleware.RequireAuth())

		authRoutes := protected.Group("/auth")
		{
			authRoutes.POST("/logout", hm.authHandler.Logout)
			authRoutes.GET("/session", hm.authHandler.Session)
		}

		users := protected.Group("/users")
		{
			users.GET("/me", hm.userHandler.Me)
			users.GET("/contacts", hm.userHandler.Contacts)
		}

		tests := protected.Group("/tests")
		{
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/mine", teacherOnly, hm.testHandler.ListMyTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.POST("", teacherOnly, hm.testHandler.CreateTest)
			tests.PUT("/:id", teacherOnly, hm.testHandler.UpdateTest)
			tests.DELETE("/:id", teacherOnly, hm.testHandler.DeleteTest)
			tests.DELETE("/:id/questions/:question_id", teacherOnly, hm.testHandler.RemoveQuestion)
			tests.POST("/:id/submit", studentOnly, hm.testHandler.SubmitTest)
		}

		results := protected.Group("/results")
		{
			results.GET("/mine", studentOnly, hm.resultHandler.ListMyResults)
			results.GET("/:id", hm.resultHandler.ReviewResult)
		}

		statistics := protected.Group("/statistics")
		{
			statistics.GET("/tests", teacherOnly, hm.statisticsHandler.TeacherOverview)
			statistics.GET("/tests/:id", teacherOnly, hm.statisticsHandler.TestStatistics)
			statistics.GET("/tests/:id/export", teacherOnly, hm.statisticsHandler.ExportTestResults)
			statistics.GET("/students/:id", hm.statisticsHandler.StudentProgress)
		}

		reports := protected.Group("/reports")
		{
			reports.POST("", studentOnly, hm.reportHandler.FileReport)
			reports.GET("", teacherOnly, hm.reportHandler.ListReports)
			reports.PUT("/:id", teacherOnly, hm.reportHandler.RespondReport)
		}

		chats := protected.Group("/chats")
		{
			chats.GET("", hm.chatHandler.ListConversations)
			chats.GET("/unread", hm.chatHandler.Unread)
			chats.GET("/stream", hm.chatHandler.Stream)
			chats.GET("/:user_id", hm.chatHandler.OpenConversation)
			chats.POST("/:user_id/messages", hm.chatHandler.SendMessage)
			chats.POST("/:user_id/read", hm.chatHandler.MarkRead)
		}
	}
}
