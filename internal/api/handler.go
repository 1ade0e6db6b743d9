package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/pipeline"
)

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Settings.Current())
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var u model.StrategyUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid configuration payload"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	cfg, err := s.deps.Settings.Update(ctx, u)
	if err != nil {
		if errors.Is(err, model.ErrInvalidStrategy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
			return
		}
		s.log.Error("update configuration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating configuration"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleResetConfig(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	cfg, err := s.deps.Settings.Reset(ctx)
	if err != nil {
		s.log.Error("reset configuration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resetting configuration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration reset to defaults",
		"config":  cfg,
	})
}

func (s *Server) handleListOrders(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	orders, err := s.deps.Orders.ListOrders(ctx)
	if err != nil {
		s.log.Error("list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading orders"})
		return
	}
	if orders == nil {
		orders = []*model.DecisionRecord{}
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) handleClearOrders(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := s.deps.Orders.ClearOrders(ctx); err != nil {
		s.log.Error("clear orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error clearing orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "All orders have been cleared",
		"orders":  []*model.DecisionRecord{},
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	sig, err := pipeline.DecodeSignal(body)
	if err != nil {
		s.writeSignalError(c, nil, err)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.deps.Signals.Process(ctx, sig)
	if err != nil {
		s.writeSignalError(c, sig, err)
		return
	}

	if s.deps.OnDecision != nil {
		s.deps.OnDecision(res)
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Signal processed successfully",
		"action":      res.Action,
		"explanation": res.Explanation,
		"order":       res.Order,
	})
}

func (s *Server) writeSignalError(c *gin.Context, sig *model.TradingSignal, err error) {
	var invalid *pipeline.InvalidSignalError
	switch {
	case errors.Is(err, pipeline.ErrMalformedSignal):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing required signal parameters",
			"required": pipeline.RequiredFields,
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid signal",
			"message": invalid.Explanation,
		})
	case errors.Is(err, pipeline.ErrPriceUnavailable):
		symbol := ""
		if sig != nil {
			symbol = sig.Symbol
		}
		s.log.Warn("price lookup failed", zap.String("symbol", symbol), zap.Error(err),
			zap.String("request_id", c.GetString(RequestIDContextKey)))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Price unavailable",
			"message": "Failed to get price for " + symbol,
		})
	default:
		s.log.Error("process webhook", zap.Error(err), zap.String("request_id", c.GetString(RequestIDContextKey)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing webhook"})
	}
}

// handleNoRoute serves the static frontend, falling back to index.html so
// client-side routes resolve.
func (s *Server) handleNoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if s.opts.StaticDir == "" || strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	file := filepath.Join(s.opts.StaticDir, filepath.Clean("/"+path))
	if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
		c.File(file)
		return
	}
	c.File(filepath.Join(s.opts.StaticDir, "index.html"))
}

// validationMessage strips the sentinel prefix from a strategy validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), model.ErrInvalidStrategy.Error()+": ")
}

