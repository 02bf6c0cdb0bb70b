package app

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppockey/po-approvals/internal/api/handlers"
	"github.com/ppockey/po-approvals/internal/api/middleware"
	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// defaultAllowedOrigins are the local UI origins used when none are configured.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Metrics(),
		cors.New(buildCORSConfig(cfg)),
		middleware.ErrorHandler(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Any("/log/level", gin.WrapH(logger.LevelHandler()))
	server.Register(router)
	return router
}

// buildCORSConfig applies the configured origin allowlist. "*" is honoured
// only with server.unsafe_allow_all_origins, and then without credentials.
func buildCORSConfig(cfg *config.Config) cors.Config {
	out := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		out.AllowAllOrigins = true
		out.AllowCredentials = false
		return out
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" || slices.Contains(origins, o) {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = slices.Clone(defaultAllowedOrigins)
	}
	out.AllowOrigins = origins
	return out
}
