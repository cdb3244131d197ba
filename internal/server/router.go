package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/brightclass/brightclass-backend/internal/handlers"
	"github.com/brightclass/brightclass-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName      string
	AllowedOrigins   []string
	AuthMiddleware   *middleware.AuthMiddleware
	LessonGenHandler *handlers.LessonGenHandler
	GenRunHandler    *handlers.GenRunHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.HandleMethodNotAllowed = true

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "brightclass-backend"
	}
	router.Use(otelgin.Middleware(serviceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Generation
	api.POST("/generate/lesson", cfg.LessonGenHandler.GenerateLesson)
	api.POST("/generate/part", cfg.LessonGenHandler.GeneratePart)
	api.POST("/generate/activities", cfg.LessonGenHandler.GenerateActivities)
	// Quota
	api.GET("/generate/quota", cfg.LessonGenHandler.GetQuota)
	// Run history
	api.GET("/generate/runs", cfg.GenRunHandler.ListRuns)
	api.GET("/generate/runs/:id", cfg.GenRunHandler.GetRunByID)

	return router
}
