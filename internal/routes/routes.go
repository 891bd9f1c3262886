package routes

import (
	"site-ops-server/internal/config"
	"site-ops-server/internal/handlers"
	"site-ops-server/internal/metrics"
	"site-ops-server/internal/middleware"
	"site-ops-server/internal/models"
	"site-ops-server/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, engine *scheduler.Engine, m *metrics.Metrics, cfg *config.Config) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	visitHandler := handlers.NewVisitHandler(engine, db, m)
	projectHandler := handlers.NewProjectHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Supervisor directory - accessible to all authenticated users for booking
			userRoutes.GET("/supervisors", userHandler.GetSupervisors)

			// Client directory - accessible to supervisors and admins
			userRoutes.GET("/clients", userHandler.GetClients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin)) // Only Admins
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Visit scheduling routes
		visitRoutes := private.Group("/visits")
		{
			// Clients and admins book visits; supervisors get theirs assigned
			visitRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleClient, models.RoleAdmin), visitHandler.CreateVisit)

			// Filtered list and stats (supervisors implicitly scoped to themselves)
			visitRoutes.GET("", visitHandler.GetVisits)
			visitRoutes.GET("/stats", visitHandler.GetVisitStats)
			visitRoutes.GET("/:id", visitHandler.GetVisitByID) // Authorization inside handler

			// Field edits and lifecycle transitions (owning supervisor or admin)
			visitRoutes.PUT("/:id", visitHandler.UpdateVisit)
			visitRoutes.POST("/:id/start", visitHandler.StartVisit)
			visitRoutes.POST("/:id/complete", visitHandler.CompleteVisit)
			visitRoutes.POST("/:id/cancel", visitHandler.CancelVisit)
			visitRoutes.POST("/:id/reschedule", visitHandler.RescheduleVisit)

			// Hard removal is administrative, outside the state machine
			visitRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), visitHandler.DeleteVisit)
		}

		// Project registry routes
		projectRoutes := private.Group("/projects")
		{
			projectRoutes.GET("", projectHandler.GetProjects)
			projectRoutes.GET("/:id", projectHandler.GetProjectByID) // Authorization inside handler

			adminProjects := projectRoutes.Group("")
			adminProjects.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminProjects.POST("", projectHandler.CreateProject)
				adminProjects.PUT("/:id", projectHandler.UpdateProject)
				adminProjects.DELETE("/:id", projectHandler.DeleteProject)
			}
		}

		// Notification feed routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationAsRead)
		}
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
