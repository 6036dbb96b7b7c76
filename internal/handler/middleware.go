package handler

import (
	"fmt"
	"net/http"
	"time"

	"mirror-match-backend/internal/model"
	"mirror-match-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID 透传或生成请求ID，并写入请求 context 供日志使用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.FromContext(c.Request.Context()).WithFields(logger.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"bytes":     c.Writer.Size(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Info("http request")
	}
}

// BodyLimit caps the request body; reads past the limit fail and the JSON
// binding reports an invalid body.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// Recovery is used with gin.CustomRecovery so that a panic still answers
// with the JSON error envelope.
func Recovery(c *gin.Context, recovered interface{}) {
	logger.FromContext(c.Request.Context()).WithField("panic", recovered).Error("handler panicked")
	c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
		Error:   "Failed to analyze emotion",
		Details: fmt.Sprint(recovered),
	})
}
