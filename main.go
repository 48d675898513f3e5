package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	controller "github.com/assignmate/AssignMate/controller"
	"github.com/assignmate/AssignMate/initializers"
	middleware "github.com/assignmate/AssignMate/middleware"
	service "github.com/assignmate/AssignMate/service"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("[WARN] No .env file loaded: %s", err)
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	assignmentService, err := service.NewAssignmentService(initializers.DB)
	if err != nil {
		log.Fatalf("Failed to initialize assignment service: %s", err)
	}
	authService := service.NewAuthService(initializers.DB)

	assignmentController := controller.NewAssignmentController(assignmentService)
	authController := controller.NewAuthController(authService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Auth endpoints with stricter rate limiting
	router.POST("/register",
		middleware.StrictRateLimiter.Limit(),
		authController.Register)
	router.POST("/login",
		middleware.StrictRateLimiter.Limit(),
		authController.Login)

	// Everything below is owner-scoped
	authed := router.Group("/", middleware.AuthMiddleware())

	authed.GET("/dashboard", assignmentController.GetDashboard)

	authed.POST("/assignments",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.CreateAssignment)
	authed.GET("/assignments", assignmentController.ListAssignments)
	authed.GET("/assignments/search", assignmentController.SearchAssignments)
	authed.POST("/assignments/recalculate", assignmentController.RecalculatePriorities)
	authed.POST("/assignments/export",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.ExportAssignments)
	authed.GET("/assignments/:id", assignmentController.GetAssignment)
	authed.PUT("/assignments/:id", assignmentController.UpdateAssignment)
	authed.PATCH("/assignments/:id/status", assignmentController.UpdateStatus)
	authed.PATCH("/assignments/:id/complete", assignmentController.CompleteAssignment)
	authed.DELETE("/assignments/:id", assignmentController.DeleteAssignment)

	router.Run(":8080")
}
