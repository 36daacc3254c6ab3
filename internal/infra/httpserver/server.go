package httpserver

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/attid/MyMTLWalletBot-sub000/internal/config"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/nonce"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
	"github.com/attid/MyMTLWalletBot-sub000/internal/services"
)

type Server struct {
	cfg    config.Config
	echo   *echo.Echo
	addr   string
	closed bool
}

func NewServer(cfg config.Config, bus ports.EventBus, upstream ports.UpstreamClient, sync *services.Synchronizer, nonces *nonce.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		cfg:  cfg,
		echo: e,
		addr: fmt.Sprintf(":%s", cfg.AppPort),
	}

	e.GET("/health", HealthHandler)
	e.POST("/webhook", WebhookHandler(bus, upstream))

	admin := e.Group("/admin", jwtGuard(cfg.JWTSecret))
	admin.POST("/sync", SyncHandler(sync))
	admin.GET("/subscriptions", ListSubscriptionsHandler(upstream, nonces))

	return s
}

func (s *Server) Start() error {
	logger.L.Info("webhook server listening", "addr", s.addr)
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.echo.Shutdown(ctx)
}
