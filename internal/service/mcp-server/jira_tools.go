package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/jira"
	"jira_jql_tool/internal/logger"
)

// jiraTools bundles the dependencies the tool handlers need.
type jiraTools struct {
	cfg    *config.Config
	client *jira.Client
}

func newJiraTools(cfg *config.Config, client *jira.Client) *jiraTools {
	return &jiraTools{cfg: cfg, client: client}
}

// registerJiraTools registers all Jira-related tools with the server
func registerJiraTools(s *server.MCPServer, t *jiraTools) error {
	// Search Jira tool
	searchJiraTool := mcp.NewTool("jira_search",
		mcp.WithDescription("Search Jira issues using JQL and return parsed issue details"),
		mcp.WithString("jql",
			mcp.Required(),
			mcp.Description("JQL query string, e.g. 'project = ABC AND status = Open'"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated fields to return in the results"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return"),
		),
		mcp.WithNumber("start_at",
			mcp.Description("Index of the first result, for pagination"),
		),
	)

	// Get Jira issue tool
	getJiraTool := mcp.NewTool("jira_get_issue",
		mcp.WithDescription("Get details of a specific Jira issue"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Jira issue key (e.g., 'TVP-123')"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated fields to return in the results"),
		),
	)

	// Register tools with handlers
	s.AddTool(searchJiraTool, t.handleSearchJira)
	s.AddTool(getJiraTool, t.handleGetJira)

	registerReportTools(s, t)

	return nil
}

func (t *jiraTools) handleSearchJira(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jql, ok := request.Params.Arguments["jql"].(string)
	if !ok {
		return mcp.NewToolResultError("invalid jql parameter"), nil
	}

	req := jira.SearchRequest{
		JQL:        jql,
		MaxResults: intArg(request, "max_results"),
		StartAt:    intArg(request, "start_at"),
		Fields:     fieldsArg(request),
	}

	logger.GetLogger().Info("executing jql search", zap.String("jql", jql))

	result, err := t.client.Search(ctx, req)
	if err != nil {
		return toolError(err), nil
	}

	return toolResultJSON(result)
}

func (t *jiraTools) handleGetJira(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, ok := request.Params.Arguments["issue_key"].(string)
	if !ok {
		return mcp.NewToolResultError("invalid issue_key parameter"), nil
	}

	issue, err := t.client.GetIssue(ctx, issueKey, fieldsArg(request))
	if err != nil {
		return toolError(err), nil
	}

	return toolResultJSON(issue)
}

// intArg pulls an optional numeric argument; 0 means absent.
func intArg(request mcp.CallToolRequest, name string) int {
	if v, ok := request.Params.Arguments[name].(float64); ok {
		return int(v)
	}
	return 0
}

func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.Params.Arguments[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// fieldsArg splits the optional comma-separated fields argument.
func fieldsArg(request mcp.CallToolRequest) []string {
	raw := stringArg(request, "fields")
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// toolResultJSON renders any value as a JSON text result.
func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	jsonResult, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %v", err)
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

// toolError converts a forwarder error into a structured tool error
// result. The process keeps serving; only the call fails.
func toolError(err error) *mcp.CallToolResult {
	var queryErr *jira.QueryError
	var authErr *jira.AuthError
	var transientErr *jira.TransientError

	switch {
	case errors.As(err, &queryErr):
		return mcp.NewToolResultError(fmt.Sprintf("query error: %s", queryErr.Error()))
	case errors.As(err, &authErr):
		logger.GetLogger().Error("jira authentication failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("auth error: %s", authErr.Error()))
	case errors.As(err, &transientErr):
		return mcp.NewToolResultError(fmt.Sprintf("transient error, safe to retry: %s", transientErr.Error()))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
