package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/playground-sync/internal/api/http"
	"github.com/GoSim-25-26J-441/playground-sync/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	authhttp "github.com/GoSim-25-26J-441/playground-sync/internal/auth/http"
	projectshttp "github.com/GoSim-25-26J-441/playground-sync/internal/projects/http"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/service"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Logger         *zap.Logger
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int

	Coordinator *service.Coordinator
	Session     *auth.Session
	Local       httpapi.Pinger
	Remote      httpapi.Pinger
	Gatherer    prometheus.Gatherer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))
	r.Use(middleware.RequestIDMiddleware(dep.Logger))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Local, dep.Remote)
	healthHandler.RegisterRoutes(r)

	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(float64(dep.RateLimitRPS), dep.RateLimitBurst))

	authhttp.New(dep.Session).Register(api.Group("/session"))
	projectshttp.New(dep.Coordinator).Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
