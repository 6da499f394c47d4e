package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	adminauth "coop-site/internal/auth"
	"coop-site/internal/menus"
	"coop-site/internal/services/health"
	"coop-site/internal/shared/config"
	"coop-site/internal/shared/metrics"
	"coop-site/internal/shared/server/middleware"
	"coop-site/internal/shared/server/respond"
)

// StaticDir publishes the files in Dir under URLPrefix.
type StaticDir struct {
	URLPrefix string
	Dir       string
}

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config      config.Config
	MenuHandler *menus.Handler
	AdminAuth   *adminauth.AdminService
	AdminGate   gin.HandlerFunc
	Health      *health.Service
	Static      []StaticDir
	StorageName string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil, deps.StorageName)
	}
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status(c.Request.Context()))
	})

	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": middleware.PerMinute(deps.Config.LoginRatePerMin, deps.Config.LoginBurst),
		},
	})
	if deps.AdminAuth != nil {
		deps.AdminAuth.RegisterRoutes(api, loginLimit)
	}
	if deps.MenuHandler != nil {
		gate := deps.AdminGate
		if gate == nil {
			gate = middleware.AdminGate(nil)
		}
		deps.MenuHandler.RegisterRoutes(api, gate)
	}

	for _, s := range deps.Static {
		if strings.TrimSpace(s.Dir) == "" || strings.TrimSpace(s.URLPrefix) == "" {
			continue
		}
		r.Static(s.URLPrefix, s.Dir)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Stránka nenalezena.", nil)
	})
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
