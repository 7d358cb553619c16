package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"skattjakt-backend/internal/config"
	"skattjakt-backend/internal/handlers"
	"skattjakt-backend/internal/middleware"
	"skattjakt-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog, err := services.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	huntEngine := services.NewHuntEngine(redisService, catalog)
	wsHandler := handlers.NewWebSocketHandler(redisService)
	huntEngine.SetFeedbackSink(wsHandler)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			huntEngine.CleanupStaleAttempts(24 * time.Hour)
		}
	}()

	sessionHandler := handlers.NewSessionHandler(redisService, jwtService, huntEngine)
	huntHandler := handlers.NewHuntHandler(huntEngine, redisService, cfg.MaxPhotoBytes)
	pagesHandler := handlers.NewPagesHandler(catalog)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/session", sessionHandler.CreateSession)
	router.GET("/pages", pagesHandler.ListPages)
	router.GET("/pages/:key", pagesHandler.GetPage)
	router.Static("/assets", cfg.AssetsDir)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/session", sessionHandler.GetCurrentSession)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		hunt := protected.Group("/hunt")
		{
			hunt.GET("/state", huntHandler.GetState)
			hunt.POST("/start", huntHandler.Start)
			hunt.POST("/submit", huntHandler.Submit)
			hunt.POST("/final", huntHandler.SubmitFinal)
			hunt.DELETE("/session", huntHandler.Reset)

			hunt.GET("/submissions", huntHandler.GetSubmissions)
			hunt.GET("/photo", huntHandler.GetPhoto)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
