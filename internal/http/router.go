package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/http/handlers"
	httpMW "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/http/middleware"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	GenerationHandler *httpH.GenerationHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestScope())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Generation
		if cfg.GenerationHandler != nil {
			api.POST("/generation/jobs", cfg.GenerationHandler.CreateJob)
			api.GET("/generation/jobs/:id", cfg.GenerationHandler.GetJob)
			api.GET("/generation/jobs/:id/events", cfg.GenerationHandler.StreamJobEvents)
			api.DELETE("/generation/jobs/:id", cfg.GenerationHandler.CancelJob)
		}
	}

	return r
}
