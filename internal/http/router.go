package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kedaivpn/vpn-platform/provisioning-service/internal/config"
)

type Server struct {
	router       *gin.Engine
	handler      *Handler
	adminHandler *AdminHandler
	cfg          *config.Config
}

// 账号创建速率限制器: 每 IP 每分钟最多 10 次
var createRateLimiter = NewRateLimiter(10, time.Minute)

// 管理登录速率限制器: 每 IP 每小时最多 20 次（防止口令爆破）
var loginRateLimiter = NewRateLimiter(20, time.Hour)

func NewServer(cfg *config.Config, handler *Handler, adminHandler *AdminHandler) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:       router,
		handler:      handler,
		adminHandler: adminHandler,
		cfg:          cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "provisioning-service",
		})
	})

	// Public API - the wizard front-end talks to these
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/servers", s.handler.ListServers)
		v1.POST("/create", RateLimitMiddleware(createRateLimiter), s.handler.CreateAccount)

		wizard := v1.Group("/wizard")
		{
			wizard.POST("", s.handler.StartWizard)
			wizard.GET("/:id", s.handler.GetWizard)
			wizard.POST("/:id/protocol", s.handler.SelectProtocol)
			wizard.POST("/:id/server", s.handler.SelectServer)
			wizard.POST("/:id/submit", RateLimitMiddleware(createRateLimiter), s.handler.SubmitForm)
			wizard.POST("/:id/back", s.handler.Back)
			wizard.POST("/:id/reset", s.handler.ResetWizard)
			wizard.POST("/:id/servers/refresh", s.handler.RefreshServers)
		}
	}

	// Admin API - server registry management, behind the gate
	admin := s.router.Group("/api/admin")
	{
		admin.POST("/login", RateLimitMiddleware(loginRateLimiter), s.adminHandler.Login)

		authed := admin.Group("")
		authed.Use(AdminAuthMiddleware(s.cfg.JWT.SecretKey))
		{
			authed.GET("/servers", s.adminHandler.ListServers)
			authed.POST("/servers", s.adminHandler.AddServer)
			authed.DELETE("/servers/:id", s.adminHandler.DeleteServer)
			authed.PUT("/password", s.adminHandler.ChangePassword)
		}
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.router
}
