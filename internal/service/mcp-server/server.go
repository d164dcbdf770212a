package mcpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/jira"
	"jira_jql_tool/internal/logger"
)

const (
	serverName    = "jira-jql-tool"
	serverVersion = "1.0.0"
)

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, client *jira.Client) (*server.MCPServer, error) {
	// Create MCP server
	s := server.NewMCPServer(
		serverName,
		serverVersion,
	)

	// Add Jira tools
	if err := registerJiraTools(s, newJiraTools(cfg, client)); err != nil {
		return nil, err
	}

	return s, nil
}

// Serve runs the MCP server over stdio. This is the transport an MCP
// host uses when launching the server as a subprocess.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// ServeSSE runs the MCP server over HTTP with SSE framing, for hosts
// that connect to a port instead of spawning a subprocess. Blocks
// until the context is cancelled.
func ServeSSE(ctx context.Context, s *server.MCPServer, listenAddr string) error {
	sseServer := server.NewSSEServer(s,
		server.WithBaseURL(fmt.Sprintf("http://%s", listenAddr)),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logger.GinLogMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "server": serverName, "version": serverVersion})
	})
	router.GET("/sse", gin.WrapH(sseServer.SSEHandler()))
	router.POST("/message", gin.WrapH(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}
