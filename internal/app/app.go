package app

import (
	"database/sql"
	"fmt"
	"log"

	"dealdesk/internal/config"
	"dealdesk/internal/handlers"
	"dealdesk/internal/realtime"
	"dealdesk/internal/repositories"
	"dealdesk/internal/routes"
	"dealdesk/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "dealdesk/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Ошибка подключения к БД: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка закрытия БД: %v", err)
		}
	}()

	// === Repos ===
	stageRepo := repositories.NewStageRepository(db)
	dealRepo := repositories.NewDealRepository(db)
	contactRepo := repositories.NewContactRepository(db)
	companyRepo := repositories.NewCompanyRepository(db)
	taskRepo := repositories.NewTaskRepository(db)

	// === Realtime (view invalidation) ===
	hub := realtime.NewHub()

	// === Services ===
	stageService := services.NewStageService(stageRepo, hub)
	dealService := services.NewDealService(dealRepo, stageRepo, contactRepo, companyRepo, hub, cfg.Defaults.Currency)
	contactService := services.NewContactService(contactRepo, companyRepo, hub)
	companyService := services.NewCompanyService(companyRepo, hub)
	taskService := services.NewTaskService(taskRepo, hub)
	dashboardService := services.NewDashboardService(dealRepo, contactRepo, companyRepo, taskRepo)

	// === Handlers ===
	stageHandler := handlers.NewStageHandler(stageService)
	dealHandler := handlers.NewDealHandler(dealService)
	boardHandler := handlers.NewBoardHandler(dealService, stageService)
	contactHandler := handlers.NewContactHandler(contactService)
	companyHandler := handlers.NewCompanyHandler(companyService)
	taskHandler := handlers.NewTaskHandler(taskService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	wsHandler := handlers.NewWSHandler(hub)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		[]byte(cfg.Auth.JWTSecret),
		stageHandler,
		dealHandler,
		boardHandler,
		contactHandler,
		companyHandler,
		taskHandler,
		dashboardHandler,
		wsHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Ошибка запуска сервера: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
