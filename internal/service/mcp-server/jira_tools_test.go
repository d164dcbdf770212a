package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/jira"
)

// newTestTools wires a jiraTools against a stub Jira server.
func newTestTools(t *testing.T, handler http.HandlerFunc) *jiraTools {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		JiraURL:      srv.URL,
		JiraUsername: "bot@example.com",
		JiraAPIToken: "token",
		CustomFields: config.CustomFields{
			EpicLink:    "customfield_10014",
			StoryPoints: "customfield_10016",
			Sprint:      "customfield_10020",
		},
		Limits: config.Limits{
			SearchIssues:          50,
			PriorityBacklog:       20,
			ActiveWork:            20,
			ActiveEpics:           20,
			RecentCompletions:     20,
			TeamMetrics:           20,
			BlockedIssues:         20,
			StaleIssues:           20,
			DaysRecentCompletions: 7,
			DaysTeamMetrics:       30,
			DaysStaleIssues:       14,
		},
		DefaultTeamName:   "Data Pod",
		MaxResultsCeiling: 100,
		Timeout:           2 * time.Second,
	}
	return newJiraTools(cfg, jira.NewClient(cfg))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func searchStub(t *testing.T, total int, issues []map[string]any, captureJQL *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if captureJQL != nil {
			*captureJQL, _ = body["jql"].(string)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"startAt": 0, "total": total, "issues": issues,
		})
	}
}

func TestHandleSearchJira(t *testing.T) {
	t.Run("returns parsed issues as JSON", func(t *testing.T) {
		var gotJQL string
		tools := newTestTools(t, searchStub(t, 2, []map[string]any{
			{"key": "ABC-1", "fields": map[string]any{"summary": "First", "status": map[string]any{"name": "Open"}}},
			{"key": "ABC-2", "fields": map[string]any{"summary": "Second", "status": map[string]any{"name": "Done"}}},
		}, &gotJQL))

		result, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{"jql": "project = ABC"}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var parsed jira.SearchResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &parsed))
		assert.Equal(t, 2, parsed.Total)
		assert.False(t, parsed.Truncated)
		require.Len(t, parsed.Issues, 2)
		assert.Equal(t, "ABC-1", parsed.Issues[0].Key)
		assert.Equal(t, "Unassigned", parsed.Issues[0].Assignee)
		assert.Equal(t, "project = ABC", gotJQL)
	})

	t.Run("empty jql yields a query error result, no crash", func(t *testing.T) {
		called := false
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) { called = true })

		result, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{"jql": "  "}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "query error")
		assert.Contains(t, resultText(t, result), "empty")
		assert.False(t, called)
	})

	t.Run("missing jql argument yields an error result", func(t *testing.T) {
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {})

		result, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "invalid jql parameter")
	})

	t.Run("auth failure is reported, not retried", func(t *testing.T) {
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		result, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{"jql": "project = ABC"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "auth error")
	})

	t.Run("unreachable jira is reported as transient", func(t *testing.T) {
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		result, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{"jql": "project = ABC"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "transient error")
	})

	t.Run("max_results and fields are forwarded", func(t *testing.T) {
		var gotBody map[string]any
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{"total": 0, "issues": []any{}})
		})

		_, err := tools.handleSearchJira(context.Background(),
			callRequest("jira_search", map[string]any{
				"jql":         "project = ABC",
				"max_results": float64(5),
				"fields":      "summary, status",
			}))
		require.NoError(t, err)

		assert.Equal(t, float64(5), gotBody["maxResults"])
		assert.Equal(t, []any{"summary", "status"}, gotBody["fields"])
	})
}

func TestHandleGetJira(t *testing.T) {
	t.Run("returns a single parsed issue", func(t *testing.T) {
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/2/issue/ABC-7", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"key": "ABC-7",
				"fields": map[string]any{
					"summary": "Fix login",
					"status":  map[string]any{"name": "Open"},
				},
			})
		})

		result, err := tools.handleGetJira(context.Background(),
			callRequest("jira_get_issue", map[string]any{"issue_key": "ABC-7"}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, `"key":"ABC-7"`)
		assert.Contains(t, text, `"summary":"Fix login"`)
	})

	t.Run("missing issue_key yields an error result", func(t *testing.T) {
		tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {})

		result, err := tools.handleGetJira(context.Background(),
			callRequest("jira_get_issue", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestRegisterJiraTools(t *testing.T) {
	tools := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {})

	s, err := NewServer(tools.cfg, tools.client)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
