package main

import (
	"log"

	_ "nfa-backend/api/swagger" // swagger docs
	"nfa-backend/internal/config"
	"nfa-backend/internal/database"
	"nfa-backend/internal/handler"
	"nfa-backend/internal/middleware"
	"nfa-backend/internal/repository"
	"nfa-backend/internal/service"
	"nfa-backend/internal/storage"
	"nfa-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           NFA Approval API
// @version         1.0
// @description     Multi-stage approval workflow for Notes For Approval.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL successfully")

	store, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("Failed to initialize attachment storage", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	actionRepo := repository.NewActionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	jwtKey := cfg.JWTKey()
	userService := service.NewUserService(userRepo, tokenRepo, requestRepo, jwtKey, cfg.AccessTokenTTL)
	approvalService := service.NewApprovalService(requestRepo, actionRepo, eventRepo, userRepo, txManager, store, wsHub)
	queryService := service.NewRequestQueryService(requestRepo, actionRepo, eventRepo, userRepo)

	authMiddleware := middleware.NewAuthMiddleware(tokenRepo, jwtKey)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(userService, authMiddleware, logger)
	requestHandler := handler.NewRequestHandler(approvalService, queryService, authMiddleware, logger)
	adminHandler := handler.NewAdminHandler(approvalService, queryService, userService, authMiddleware, logger)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtKey)
	})

	// Stored attachments are served directly from disk
	router.Static("/files", cfg.UploadDir)

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	adminHandler.RegisterRoutes(router.Group(""))

	logger.Info("Server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
