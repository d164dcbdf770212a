package logger

import (
	"bytes"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// bodyLimit caps how much of a request body ends up in a log line
	bodyLimit = 8 * 1024
)

// GinLogMiddleware logs one structured record per HTTP request.
// Response bodies are not captured: the SSE endpoint streams
// indefinitely and buffering it would hold the whole session in memory.
func GinLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		requestBody := readRequestBody(c)

		defer func() {
			if r := recover(); r != nil {
				GetLogger().Error("panic while handling request",
					zap.String("method", method),
					zap.String("path", path),
					zap.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()

		GetLogger().Info("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("body", requestBody),
		)
	}
}

// readRequestBody drains and reattaches the request body, truncated to
// bodyLimit.
func readRequestBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.Method == http.MethodGet {
		return ""
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	// reattach request body for later use
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	body := string(bodyBytes)
	if len(body) > bodyLimit {
		return body[:bodyLimit] + "...TRUNCATED"
	}
	return strings.TrimSpace(body)
}
