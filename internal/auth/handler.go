package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sharedauth "coop-site/internal/shared/auth"
	"coop-site/internal/shared/metrics"
	"coop-site/internal/shared/server/middleware"
	"coop-site/internal/shared/server/respond"
	"coop-site/internal/shared/telemetry"
)

// AdminService handles the shared-password admin login.
type AdminService struct {
	sessions     *sharedauth.Sessions
	password     sharedauth.Password
	secureCookie bool
}

// NewAdminService builds an AdminService. secureCookie marks the session
// cookie Secure, which production deployments behind TLS want.
func NewAdminService(sessions *sharedauth.Sessions, password sharedauth.Password, secureCookie bool) *AdminService {
	return &AdminService{sessions: sessions, password: password, secureCookie: secureCookie}
}

// RegisterRoutes attaches login routes. limit throttles login attempts.
func (s *AdminService) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	rg.POST("/auth/login", limit, s.login)
	rg.POST("/auth/logout", s.logout)
	rg.GET("/auth/check", middleware.OptionalAdmin(s.sessions), s.check)
}

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

func (s *AdminService) login(c *gin.Context) {
	if !s.password.Configured() {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Přihlášení administrátora není nastaveno.", nil)
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Zadejte heslo.", nil)
		return
	}
	if !s.password.Check(req.Password) {
		metrics.IncLoginFailed()
		telemetry.Warn("admin.login.failed", map[string]any{
			"client_ip":  c.ClientIP(),
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Nesprávné heslo.", nil)
		return
	}

	token, _, err := s.sessions.Issue()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Přihlášení se nezdařilo.", nil)
		return
	}
	s.setCookie(c, token, int(s.sessions.TTL().Seconds()))
	telemetry.Info("admin.login.ok", map[string]any{"client_ip": c.ClientIP()})
	respond.OK(c, gin.H{"success": true})
}

func (s *AdminService) logout(c *gin.Context) {
	s.setCookie(c, "", -1)
	respond.OK(c, gin.H{"success": true})
}

func (s *AdminService) check(c *gin.Context) {
	respond.NoStore(c, gin.H{"authenticated": middleware.IsAdmin(c)})
}

func (s *AdminService) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", s.secureCookie, true)
}
