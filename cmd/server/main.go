package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/containeroo/tinyflags"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/jira"
	"jira_jql_tool/internal/logger"
	mcpserver "jira_jql_tool/internal/service/mcp-server"
)

const version = "1.0.0"

type flags struct {
	Transport  string
	ListenAddr string
	LogLevel   string
}

func parseArgs(args []string) (flags, error) {
	var f flags
	tf := tinyflags.NewFlagSet("jira-jql-tool", tinyflags.ContinueOnError)
	tf.Version(version)

	transport := tf.String("transport", "stdio", "MCP transport").
		Choices("stdio", "sse").
		Value()
	tf.StringVar(&f.ListenAddr, "listen-address", "127.0.0.1:5000", "HTTP listen address for the sse transport").Value()
	tf.StringVar(&f.LogLevel, "log-level", "", "Log level; overrides LOG_LEVEL").Value()

	if err := tf.Parse(args); err != nil {
		return flags{}, err
	}

	f.Transport = *transport
	return f, nil
}

func main() {
	f, err := parseArgs(os.Args[1:])
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(os.Stderr, err.Error())
			return
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Refuse to start without credentials
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	level := cfg.LogLevel
	if f.LogLevel != "" {
		level = f.LogLevel
	}
	if err := logger.Init(level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create new MCP server
	client := jira.NewClient(cfg)
	server, err := mcpserver.NewServer(cfg, client)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start server. Status output goes to stderr: stdout belongs to the
	// MCP stdio framing.
	switch f.Transport {
	case "sse":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		fmt.Fprintf(os.Stderr, "Starting Jira JQL MCP server on %s...\n", f.ListenAddr)
		if err := mcpserver.ServeSSE(ctx, server, f.ListenAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "Starting Jira JQL MCP server on stdio...")
		if err := mcpserver.Serve(server); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
