package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/njchilds90/odesolve/internal/logging"
	"github.com/njchilds90/odesolve/internal/trace"
)

// diagnosticLimit bounds the stack excerpt returned for a handler panic.
const diagnosticLimit = 500

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// requestContext attaches a request-scoped logger to the request context
// and records per-route metrics once the handler chain returns.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := s.logger.With("request_id", getOrCreateRequestID(c))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		recordRequest(c.FullPath(), c.Request.Method, status, elapsed)
		logger.Debug("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
		)
	}
}

// recovered answers a handler panic with the /solve failure shape.
func (s *Server) recovered(c *gin.Context, p any) {
	logging.FromContext(c.Request.Context(), s.logger).Error("handler panic recovered", "panic", fmt.Sprint(p))
	c.AbortWithStatusJSON(http.StatusInternalServerError, failure(
		fmt.Sprintf("❌ Unexpected error: %v", p),
		"   Details: "+trace.Truncate(string(debug.Stack()), diagnosticLimit),
	))
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.MaxBodyBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		}
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			recordRejection("rate_limited")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				failure("❌ Too many requests. Please wait a moment and try again."))
			return
		}
		c.Next()
	}
}
