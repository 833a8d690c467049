// Package webserver hosts the echo HTTP server and route registration
// helpers shared by the API handler packages.
package webserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/config"
)

var server *WebServer

// WebServer wraps echo with an authenticated /api group and an open
// public group for webhook receivers.
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	public *echo.Group
	cfg    *config.AppConfig
}

func Init(cfg *config.AppConfig, auth echo.MiddlewareFunc) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = NewJsoniterSerializer()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	server = &WebServer{
		root:   e,
		api:    e.Group("/api", auth),
		public: e.Group(""),
		cfg:    cfg,
	}
	return server
}

// Instance returns the initialized server; panics when Init was skipped.
func Instance() *WebServer {
	if server == nil {
		panic("webserver not initialized")
	}
	return server
}

func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("webserver: listening", zap.String("addr", addr))
	s.root.Server.ReadTimeout = 30 * time.Second
	s.root.Server.WriteTimeout = 60 * time.Second
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ApiGET registers an authenticated GET route under /api.
func ApiGET(path string, h echo.HandlerFunc) {
	Instance().api.GET(path, h)
}

// ApiPOST registers an authenticated POST route under /api.
func ApiPOST(path string, h echo.HandlerFunc) {
	Instance().api.POST(path, h)
}

// PubGET registers an unauthenticated GET route.
func PubGET(path string, h echo.HandlerFunc) {
	Instance().public.GET(path, h)
}

// PubPOST registers an unauthenticated POST route.
func PubPOST(path string, h echo.HandlerFunc) {
	Instance().public.POST(path, h)
}
