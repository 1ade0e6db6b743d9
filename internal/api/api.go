// Package api exposes the webhook, configuration and order endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/observability"
	"TrendSignal/internal/pipeline"
)

const (
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"

	DefaultRequestTimeout = 20 * time.Second
	maxBodyBytes          = 1 << 20
)

// SignalProcessor runs a signal through the decision pipeline.
type SignalProcessor interface {
	Process(ctx context.Context, sig *model.TradingSignal) (*pipeline.Result, error)
}

// StrategySettings reads and changes the active strategy configuration.
type StrategySettings interface {
	Current() model.StrategyConfig
	Update(ctx context.Context, u model.StrategyUpdate) (model.StrategyConfig, error)
	Reset(ctx context.Context) (model.StrategyConfig, error)
}

// OrderStore lists and clears recorded orders.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]*model.DecisionRecord, error)
	ClearOrders(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Signals  SignalProcessor
	Settings StrategySettings
	Orders   OrderStore
	// OnDecision is called after an order is recorded. It must not block.
	OnDecision func(*pipeline.Result)
	Log        *zap.Logger
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	Mode           string
	StaticDir      string
	CORSOrigins    []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// Server is the HTTP front of the service.
type Server struct {
	router *gin.Engine
	srv    *http.Server
	deps   Deps
	opts   Options
	log    *zap.Logger
}

// NewServer wires routes and middleware.
func NewServer(deps Deps, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(opts.CORSOrigins))

	s := &Server{router: router, deps: deps, opts: opts, log: log}
	s.setupRoutes()
	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.GET("/config", s.handleGetConfig)
		api.POST("/config", s.handleUpdateConfig)
		api.POST("/config/reset", s.handleResetConfig)

		api.GET("/orders", s.handleListOrders)
		api.POST("/orders/reset", s.handleClearOrders)

		api.POST("/webhook", s.handleWebhook)
	}
	s.router.GET("/metrics", gin.WrapH(observability.Handler()))
	s.router.NoRoute(s.handleNoRoute)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("api server listening", zap.String("addr", s.opts.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("api server shutting down")
	return s.srv.Shutdown(ctx)
}
