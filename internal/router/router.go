package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/handler"
	"github.com/examplify/examplify-backend/internal/middleware"
	"github.com/examplify/examplify-backend/internal/response"
	"github.com/examplify/examplify-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Pool    *handler.PoolHandler
	Taker   *handler.TakerHandler
	Result  *handler.ResultHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Author Group (JWT, authoring capability) ───────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireAuthorJWT(authService))
	{
		authorAPI.GET("/exams", handlers.Exam.List)
		authorAPI.POST("/exams", handlers.Exam.Create)
		authorAPI.GET("/exams/:id", handlers.Exam.Get)
		authorAPI.PUT("/exams/:id", handlers.Exam.Update)
		authorAPI.DELETE("/exams/:id", handlers.Exam.Delete)
		authorAPI.PATCH("/exams/:id/results-visibility", handlers.Exam.SetResultVisibility)

		authorAPI.GET("/exams/:id/results", handlers.Result.ListByExam)
		authorAPI.GET("/exams/:id/results/:taker_id", handlers.Result.GetTakerResult)

		authorAPI.GET("/pools", handlers.Pool.List)
		authorAPI.POST("/pools", handlers.Pool.Create)
		authorAPI.GET("/pools/:id", handlers.Pool.Get)
		authorAPI.PUT("/pools/:id", handlers.Pool.Update)
		authorAPI.DELETE("/pools/:id", handlers.Pool.Delete)
		authorAPI.GET("/pools/:id/in-use", handlers.Pool.InUse)
	}

	// ─── 3. Taker Group (JWT, registering capability) ──────────────────
	takerAPI := router.Group("/api/v1/taker")
	takerAPI.Use(middleware.RequireTakerJWT(authService))
	{
		takerAPI.POST("/registrations", handlers.Taker.Register)
		takerAPI.GET("/exams", handlers.Taker.ListExams)
		takerAPI.POST("/exams/:code/start", handlers.Taker.Start)
		takerAPI.PUT("/exams/:code/progress", handlers.Taker.SaveProgress)
		takerAPI.POST("/exams/:code/submit", handlers.Taker.Submit)
		takerAPI.GET("/exams/:code/result", handlers.Taker.GetResult)
	}

	// ─── 4. WebSocket Group (Author WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAuthorWSAuth(authService))
	{
		ws.GET("/author/exams/:code/monitor", handlers.Monitor.MonitorStream)
	}

	return router
}
