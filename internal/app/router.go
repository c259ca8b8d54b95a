package app

import (
	"chainacademy_backend/internal/config"
	"chainacademy_backend/internal/middleware"
	"chainacademy_backend/internal/model"
	"chainacademy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Check)

	// Public catalog, optionally authenticated so admins can preview drafts.
	public := router.Group("/api")
	public.Use(middleware.TryAuthMiddleware(cfg))
	{
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:courseId", c.course.GetCourse)
	}

	// Authenticated learner surface.
	student := router.Group("/api")
	student.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		student.GET("/auth/profile", c.auth.Profile)
		student.PUT("/auth/profile", c.auth.UpdateProfile)
		student.POST("/auth/wallet", c.auth.ConnectWallet)

		student.POST("/courses/:courseId/enroll", c.enrollment.Enroll)
		student.GET("/enrollments", c.enrollment.ListMine)
		student.GET("/courses/:courseId/enrollment", c.enrollment.GetEnrollment)
		student.GET("/courses/:courseId/sections", c.enrollment.Sections)
		student.GET("/sections/:sectionId", c.enrollment.SectionContent)

		student.GET("/tests/:testId", c.test.GetTest)
		student.POST("/tests/:testId/submit", c.test.Submit)
		student.GET("/tests/:testId/attempts", c.test.ListAttempts)
		student.GET("/attempts/:attemptId", c.test.GetAttempt)

		student.POST("/progress/update", c.progress.UpdateProgress)
		student.POST("/courses/:courseId/sessions/start", c.progress.StartSession)
		student.POST("/courses/:courseId/sessions/end", c.progress.EndSession)

		student.GET("/stake/eligibility", c.stake.Eligibility)
		student.POST("/stake/refund-claimed", c.stake.RefundClaimed)
	}

	// Admin course management.
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/courses", c.course.ListAllCourses)
		admin.POST("/courses", c.course.CreateCourse)
		admin.PUT("/courses/:courseId", c.course.UpdateCourse)
		admin.DELETE("/courses/:courseId", c.course.DeleteCourse)
		admin.PUT("/courses/:courseId/publish", c.course.SetPublished)
		admin.POST("/courses/:courseId/cover", c.course.UploadCover)

		admin.POST("/courses/:courseId/sections", c.course.CreateSection)
		admin.PUT("/sections/:sectionId", c.course.UpdateSection)
		admin.DELETE("/sections/:sectionId", c.course.DeleteSection)
		admin.POST("/sections/:sectionId/unlock", c.enrollment.AdminUnlockSection)

		admin.POST("/sections/:sectionId/tests", c.course.CreateTest)
		admin.GET("/tests/:testId", c.course.GetTestAdmin)
		admin.PUT("/tests/:testId", c.course.UpdateTest)
		admin.DELETE("/tests/:testId", c.course.DeleteTest)
		admin.GET("/tests/:testId/attempts", c.test.ListAttemptsByTest)

		admin.POST("/tests/:testId/questions", c.course.CreateQuestion)
		admin.PUT("/questions/:questionId", c.course.UpdateQuestion)
		admin.DELETE("/questions/:questionId", c.course.DeleteQuestion)

		admin.POST("/questions/:questionId/answers", c.course.CreateAnswer)
		admin.PUT("/answers/:answerId", c.course.UpdateAnswer)
		admin.DELETE("/answers/:answerId", c.course.DeleteAnswer)
	}
}
