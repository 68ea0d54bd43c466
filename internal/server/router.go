package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/virachai/vision-iq/internal/handlers"
	"github.com/virachai/vision-iq/internal/middleware"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/envutil"
)

type RouterConfig struct {
	AlignmentHandler *handlers.AlignmentHandler
	JobsHandler      *handlers.JobsHandler
	Metrics          *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestMetrics())

	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := router.Group("/api")
	{
		api.POST("/storyboards/align", cfg.AlignmentHandler.AlignStoryboard)
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
	}

	return router
}

func allowedOrigins() []string {
	raw := envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
