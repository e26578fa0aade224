// Package api exposes the HTTP surface: workflow and approval operations,
// invoice and client management, branding and export.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/approval"
	"github.com/invopilot/invopilot/internal/client"
	"github.com/invopilot/invopilot/internal/export"
	"github.com/invopilot/invopilot/internal/invoice"
	"go.uber.org/zap"
)

// Server wires services into gin handlers.
type Server struct {
	engine   *approval.Engine
	invoices *invoice.Service
	clients  *client.Service
	exporter *export.ExcelExporter
	logger   *zap.Logger
}

// NewServer creates the HTTP server wiring.
func NewServer(
	engine *approval.Engine,
	invoices *invoice.Service,
	clients *client.Service,
	exporter *export.ExcelExporter,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		invoices: invoices,
		clients:  clients,
		exporter: exporter,
		logger:   logger,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "invopilot",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	api.Use(identityMiddleware())
	{
		api.POST("/workflows", s.createWorkflow)
		api.GET("/workflows", s.listWorkflows)
		api.GET("/workflows/:id", s.getWorkflow)
		api.PUT("/workflows/:id", s.updateWorkflow)
		api.DELETE("/workflows/:id", s.deleteWorkflow)

		api.POST("/invoices/:id/submit-approval", s.submitForApproval)
		api.GET("/invoices/:id/approvals", s.getApprovalHistory)
		api.POST("/approvals/:id/action", s.processApproval)
		api.GET("/approvals/pending", s.getPendingApprovals)
		api.GET("/approvals/stats", s.getApprovalStats)

		api.POST("/invoices", s.createInvoice)
		api.GET("/invoices", s.listInvoices)
		api.GET("/invoices/export", s.exportInvoices)
		api.GET("/invoices/:id", s.getInvoice)
		api.PUT("/invoices/:id", s.updateInvoice)
		api.DELETE("/invoices/:id", s.deleteInvoice)
		api.POST("/invoices/:id/send", s.sendInvoice)
		api.POST("/invoices/:id/paid", s.markInvoicePaid)
		api.POST("/invoices/:id/cancel", s.cancelInvoice)

		api.POST("/clients", s.createClient)
		api.GET("/clients", s.listClients)
		api.GET("/clients/:id", s.getClient)
		api.PUT("/clients/:id", s.updateClient)
		api.DELETE("/clients/:id", s.deleteClient)

		api.GET("/branding", s.getBranding)
		api.PUT("/branding", s.updateBranding)
	}

	return router
}

// identityMiddleware resolves the acting user. Authentication itself happens
// upstream; the proxy forwards the authenticated subject in X-User-ID.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-User-ID header",
			})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString("user_id")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
