package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/studypath/studypath-backend/internal/handlers"
	"github.com/studypath/studypath-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins    []string
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CounsellorHandler *handlers.CounsellorHandler
	ProfileHandler    *handlers.ProfileHandler
	UniversityHandler *handlers.UniversityHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

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

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/auth/signup", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Profile
	protected.GET("/profiles", cfg.ProfileHandler.Get)
	protected.POST("/profiles", cfg.ProfileHandler.Save)
	protected.PATCH("/profiles", cfg.ProfileHandler.Update)

	// University catalog
	protected.GET("/universities", cfg.UniversityHandler.List)
	protected.GET("/universities/countries", cfg.UniversityHandler.Countries)
	protected.GET("/universities/:id", cfg.UniversityHandler.GetByID)

	// Counsellor
	counsellor := protected.Group("/counsellor")
	counsellor.GET("/progress", cfg.CounsellorHandler.GetProgress)
	counsellor.POST("/progress/action", cfg.CounsellorHandler.ApplyAction)
	counsellor.GET("/recommend", cfg.CounsellorHandler.RecommendUniversities)
	counsellor.GET("/recommend-countries", cfg.CounsellorHandler.RecommendCountries)
	counsellor.GET("/stats", cfg.CounsellorHandler.Stats)
	counsellor.POST("/chat", cfg.CounsellorHandler.Chat)
	counsellor.GET("/profile-analysis", cfg.CounsellorHandler.ProfileAnalysis)

	return router
}
