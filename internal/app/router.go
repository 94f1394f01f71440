package app

import (
	"learner_dashboard/docs"
	"learner_dashboard/internal/middleware"
	"learner_dashboard/internal/model"
	"learner_dashboard/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile/password", c.profile.ChangePassword)
	rg.PUT("/profile/email", c.profile.UpdateEmail)

	rg.GET("/dashboard", c.dashboard.GetDashboard)
	rg.GET("/analytics/:category", c.analytics.GetAnalytics)

	// 徽章
	rg.GET("/badges", c.badge.GetBadges)
	rg.GET("/badges/metrics", c.badge.GetMetrics)
	rg.POST("/badges/recompute", c.badge.Recompute)

	// 课程
	rg.GET("/courses/recommendations", c.course.GetRecommendations)
	rg.GET("/courses/preferences", c.course.GetPreferences)
	rg.PUT("/courses/preferences", c.course.UpdatePreferences)
	rg.GET("/courses/:courseId/progress", c.course.GetProgress)

	// 聊天机器人
	rg.POST("/chatbot/message", c.chatbot.SendMessage)
	rg.GET("/chatbot/history", c.chatbot.GetHistory)

	// 学习路径
	rg.GET("/parcours", c.parcours.ListParcours)
	rg.GET("/parcours/:id", c.parcours.GetParcours)
	rg.POST("/parcours/:id/weeks", c.parcours.ToggleWeek)

	// 通知
	rg.GET("/notifications", c.notification.GetNotifications)
	rg.POST("/notifications/read", c.notification.MarkRead)

	// LMS 事件上报
	rg.GET("/events", c.event.ListEvents)
	rg.POST("/events/:type", c.event.TrackEvent)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/chatbot/keywords", c.chatbot.GetKeywords)

		jobs := admin.Group("/jobs")
		{
			jobs.POST("/top-learners", c.admin.RefreshTopLearners)
			jobs.POST("/cleanup", c.admin.RunCleanup)
			jobs.POST("/weekly-reports", c.admin.SendWeeklyReports)
		}
	}
}
