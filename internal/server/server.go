package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/novamart/novamart-commerce-service/internal/config"
	"github.com/novamart/novamart-commerce-service/internal/handlers"
	"github.com/novamart/novamart-commerce-service/internal/metrics"
	"github.com/novamart/novamart-commerce-service/internal/middleware"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	http   *http.Server
}

func New(h *handlers.Handlers, m *metrics.Metrics, registry *prometheus.Registry, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(m))

	s := &Server{
		config: cfg,
		router: router,
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes(h, registry)
	return s
}

func (s *Server) setupRoutes(h *handlers.Handlers, registry *prometheus.Registry) {
	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/products/:id", h.GetProduct)
		v1.POST("/auth/refresh", h.RefreshSession)

		authed := v1.Group("")
		authed.Use(middleware.Identity())
		{
			authed.POST("/orders", h.CreateOrder)
			authed.GET("/orders", h.ListOrders)
			authed.GET("/orders/:id", h.GetOrder)
			authed.POST("/orders/:id/pay", h.SettleOrder)
			authed.POST("/auth/signout", h.SignOut)
		}
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
