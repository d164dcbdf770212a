package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/jira"
)

// reportDef is one canned report: a named, bounded JQL query built
// from an optional project/team scope.
type reportDef struct {
	name        string
	description string
	limit       func(config.Limits) int
	days        func(config.Limits) int // zero when the report has no day window
	buildJQL    func(scope string, days int) string
}

var reportDefs = []reportDef{
	{
		name:        "jira_priority_backlog",
		description: "List unstarted issues ordered by priority",
		limit:       func(l config.Limits) int { return l.PriorityBacklog },
		buildJQL: func(scope string, _ int) string {
			return withScope(scope, `statusCategory = "To Do" ORDER BY priority DESC, created ASC`)
		},
	},
	{
		name:        "jira_active_work",
		description: "List in-progress issues ordered by most recent activity",
		limit:       func(l config.Limits) int { return l.ActiveWork },
		buildJQL: func(scope string, _ int) string {
			return withScope(scope, `statusCategory = "In Progress" ORDER BY updated DESC`)
		},
	},
	{
		name:        "jira_active_epics",
		description: "List epics that are not yet done",
		limit:       func(l config.Limits) int { return l.ActiveEpics },
		buildJQL: func(scope string, _ int) string {
			return withScope(scope, `issuetype = Epic AND statusCategory != Done ORDER BY updated DESC`)
		},
	},
	{
		name:        "jira_recent_completions",
		description: "List issues completed within the last N days",
		limit:       func(l config.Limits) int { return l.RecentCompletions },
		days:        func(l config.Limits) int { return l.DaysRecentCompletions },
		buildJQL: func(scope string, days int) string {
			return withScope(scope, fmt.Sprintf(`statusCategory = Done AND resolved >= -%dd ORDER BY resolved DESC`, days))
		},
	},
	{
		name:        "jira_blocked_issues",
		description: "List issues that are blocked or flagged",
		limit:       func(l config.Limits) int { return l.BlockedIssues },
		buildJQL: func(scope string, _ int) string {
			return withScope(scope, `(status = Blocked OR flagged IS NOT EMPTY) AND statusCategory != Done ORDER BY updated ASC`)
		},
	},
	{
		name:        "jira_stale_issues",
		description: "List in-progress issues untouched for N days or more",
		limit:       func(l config.Limits) int { return l.StaleIssues },
		days:        func(l config.Limits) int { return l.DaysStaleIssues },
		buildJQL: func(scope string, days int) string {
			return withScope(scope, fmt.Sprintf(`statusCategory = "In Progress" AND updated <= -%dd ORDER BY updated ASC`, days))
		},
	},
}

// reportResult wraps a search result with the report name and the JQL
// that produced it, so the assistant can refine the query itself.
type reportResult struct {
	Report string `json:"report"`
	JQL    string `json:"jql"`
	*jira.SearchResult
}

// registerReportTools registers the canned report tools and the team
// metrics tool.
func registerReportTools(s *server.MCPServer, t *jiraTools) {
	for _, def := range reportDefs {
		opts := []mcp.ToolOption{
			mcp.WithDescription(def.description),
			mcp.WithString("project",
				mcp.Description("Jira project key to scope the report to"),
			),
			mcp.WithString("team",
				mcp.Description("Team name to scope the report to; defaults to the configured team when no scope is given"),
			),
			mcp.WithNumber("max_results",
				mcp.Description("Maximum number of results to return"),
			),
		}
		if def.days != nil {
			opts = append(opts, mcp.WithNumber("days",
				mcp.Description("Day window for the report"),
			))
		}

		s.AddTool(mcp.NewTool(def.name, opts...), t.reportHandler(def))
	}

	metricsTool := mcp.NewTool("jira_team_metrics",
		mcp.WithDescription("Summarize issues completed in the last N days: totals by status, type and assignee, story points, and average resolution time"),
		mcp.WithString("project",
			mcp.Description("Jira project key to scope the metrics to"),
		),
		mcp.WithString("team",
			mcp.Description("Team name to scope the metrics to; defaults to the configured team when no scope is given"),
		),
		mcp.WithNumber("days",
			mcp.Description("Day window for the metrics"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of issues to sample"),
		),
	)
	s.AddTool(metricsTool, t.handleTeamMetrics)
}

// reportHandler runs one canned report.
func (t *jiraTools) reportHandler(def reportDef) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := 0
		if def.days != nil {
			days = def.days(t.cfg.Limits)
			if d := intArg(request, "days"); d > 0 {
				days = d
			}
		}

		jql := def.buildJQL(t.scopeClause(request), days)

		limit := def.limit(t.cfg.Limits)
		if m := intArg(request, "max_results"); m > 0 {
			limit = m
		}

		result, err := t.client.Search(ctx, jira.SearchRequest{JQL: jql, MaxResults: limit})
		if err != nil {
			return toolError(err), nil
		}

		return toolResultJSON(reportResult{
			Report:       def.name,
			JQL:          jql,
			SearchResult: result,
		})
	}
}

// teamMetrics is the aggregate handed back by jira_team_metrics.
type teamMetrics struct {
	JQL        string `json:"jql"`
	WindowDays int    `json:"window_days"`

	// TotalMatched counts every completed issue in the window; Sampled
	// counts how many were fetched and aggregated.
	TotalMatched int  `json:"total_matched"`
	Sampled      int  `json:"sampled"`
	Truncated    bool `json:"truncated"`

	ByStatus   map[string]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	ByAssignee map[string]int `json:"by_assignee"`

	StoryPointsTotal      float64 `json:"story_points_total"`
	AverageResolutionDays float64 `json:"average_resolution_days"`
}

func (t *jiraTools) handleTeamMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := t.cfg.Limits.DaysTeamMetrics
	if d := intArg(request, "days"); d > 0 {
		days = d
	}

	limit := t.cfg.Limits.TeamMetrics
	if m := intArg(request, "max_results"); m > 0 {
		limit = m
	}

	jql := withScope(t.scopeClause(request),
		fmt.Sprintf(`statusCategory = Done AND resolved >= -%dd ORDER BY resolved DESC`, days))

	result, err := t.client.Search(ctx, jira.SearchRequest{JQL: jql, MaxResults: limit})
	if err != nil {
		return toolError(err), nil
	}

	metrics := teamMetrics{
		JQL:          jql,
		WindowDays:   days,
		TotalMatched: result.Total,
		Sampled:      len(result.Issues),
		Truncated:    result.Truncated,
		ByStatus:     map[string]int{},
		ByType:       map[string]int{},
		ByAssignee:   map[string]int{},
	}

	resolvedDays := 0
	resolvedCount := 0
	for _, issue := range result.Issues {
		metrics.ByStatus[issue.Status]++
		metrics.ByType[issue.Type]++
		metrics.ByAssignee[issue.Assignee]++
		if issue.StoryPoints != nil {
			metrics.StoryPointsTotal += *issue.StoryPoints
		}
		if issue.Duration.Days != nil {
			resolvedDays += *issue.Duration.Days
			resolvedCount++
		}
	}
	if resolvedCount > 0 {
		metrics.AverageResolutionDays = float64(resolvedDays) / float64(resolvedCount)
	}

	return toolResultJSON(metrics)
}

// scopeClause builds the JQL scope from the project/team arguments.
// When neither is given, the configured default team applies.
func (t *jiraTools) scopeClause(request mcp.CallToolRequest) string {
	project := stringArg(request, "project")
	team := stringArg(request, "team")
	if project == "" && team == "" {
		team = t.cfg.DefaultTeamName
	}

	var clauses []string
	if project != "" {
		clauses = append(clauses, fmt.Sprintf("project = %s", jqlQuote(project)))
	}
	if team != "" {
		clauses = append(clauses, fmt.Sprintf("team = %s", jqlQuote(team)))
	}
	return strings.Join(clauses, " AND ")
}

// withScope prepends a scope clause to a query when one exists.
func withScope(scope, query string) string {
	if scope == "" {
		return query
	}
	return scope + " AND " + query
}

// jqlQuote quotes a JQL string value.
func jqlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
