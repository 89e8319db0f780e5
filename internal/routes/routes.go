package routes

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	stageHandler *handlers.StageHandler,
	dealHandler *handlers.DealHandler,
	boardHandler *handlers.BoardHandler,
	contactHandler *handlers.ContactHandler,
	companyHandler *handlers.CompanyHandler,
	taskHandler *handlers.TaskHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ---- protected
	r.Use(middleware.AuthMiddleware(jwtSecret))

	// invalidation feed
	r.GET("/ws", wsHandler.Subscribe)

	// STAGES
	stages := r.Group("/stages")
	{
		stages.GET("/", stageHandler.List)
		stages.POST("/", stageHandler.Create)
		stages.PUT("/reorder", stageHandler.Reorder)
		stages.PUT("/:id", stageHandler.Update)
		stages.DELETE("/:id", stageHandler.Delete)
	}

	// BOARD
	r.GET("/board", boardHandler.Get)

	// DEALS
	deals := r.Group("/deals")
	{
		deals.POST("/", dealHandler.Create)
		deals.GET("/", dealHandler.List)
		deals.GET("/:id", dealHandler.GetByID)
		deals.PUT("/:id", dealHandler.Update)
		deals.DELETE("/:id", dealHandler.Delete)
		deals.POST("/:id/move", dealHandler.Move)
		deals.POST("/:id/win", dealHandler.Win)
		deals.POST("/:id/lose", dealHandler.Lose)
	}

	// CONTACTS
	contacts := r.Group("/contacts")
	{
		contacts.POST("/", contactHandler.Create)
		contacts.GET("/", contactHandler.List)
		contacts.GET("/:id", contactHandler.GetByID)
		contacts.PUT("/:id", contactHandler.Update)
		contacts.DELETE("/:id", contactHandler.Delete)
	}

	// COMPANIES
	companies := r.Group("/companies")
	{
		companies.POST("/", companyHandler.Create)
		companies.GET("/", companyHandler.List)
		companies.GET("/:id", companyHandler.GetByID)
		companies.PUT("/:id", companyHandler.Update)
		companies.DELETE("/:id", companyHandler.Delete)
	}

	// TASKS
	tasks := r.Group("/tasks")
	{
		tasks.POST("/", taskHandler.Create)
		tasks.GET("/", taskHandler.List)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.GET("/:id/subtasks", taskHandler.Subtasks)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.POST("/:id/status", taskHandler.UpdateStatus)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	// DASHBOARD
	r.GET("/dashboard", dashboardHandler.Get)

	return r
}
