package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"jira_jql_tool/internal/config"
	"jira_jql_tool/internal/logger"
	"jira_jql_tool/internal/model"
)

const (
	searchPath = "/rest/api/2/search"
	issuePath  = "/rest/api/2/issue"
)

// defaultFields is what the search asks Jira for when the caller does
// not narrow the field set. It covers everything model.ParseIssue
// reads; the configured custom fields are appended at request time.
var defaultFields = []string{
	"summary", "description", "issuetype", "status", "priority",
	"assignee", "reporter", "components", "created", "updated",
	"statuscategorychangedate", "timespent", "timeoriginalestimate",
	"duedate", "parent",
}

// Client issues authenticated requests against one Jira instance. It
// holds no per-request state: every call is independent and
// side-effect free.
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	parseOpts  model.ParseOptions
	defaultMax int
	ceiling    int
	timeout    time.Duration
	httpClient *http.Client
}

// SearchRequest carries one JQL search invocation.
type SearchRequest struct {
	JQL        string
	StartAt    int
	MaxResults int // <=0 uses the configured default
	Fields     []string
}

// SearchResult is the structured result handed back to the caller.
// Truncated reports that Jira holds more matches than were returned.
type SearchResult struct {
	Total      int                 `json:"total"`
	StartAt    int                 `json:"start_at"`
	MaxResults int                 `json:"max_results"`
	Truncated  bool                `json:"truncated"`
	Issues     []model.ParsedIssue `json:"issues"`
}

// NewClient creates a Jira client from the process configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:  cfg.JiraURL,
		username: cfg.JiraUsername,
		apiToken: cfg.JiraAPIToken,
		parseOpts: model.ParseOptions{
			EpicLinkField:    cfg.CustomFields.EpicLink,
			StoryPointsField: cfg.CustomFields.StoryPoints,
			SprintField:      cfg.CustomFields.Sprint,
		},
		defaultMax: cfg.Limits.SearchIssues,
		ceiling:    cfg.MaxResultsCeiling,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// Search runs a JQL query and returns the parsed result. An empty
// query is rejected locally; everything else is validated by Jira.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(req.JQL) == "" {
		return nil, &QueryError{Messages: []string{"jql must not be empty"}}
	}

	maxResults := c.clampMaxResults(req.MaxResults)
	fields := req.Fields
	if len(fields) == 0 {
		fields = c.searchFields()
	}

	body := map[string]any{
		"jql":        req.JQL,
		"startAt":    req.StartAt,
		"maxResults": maxResults,
		"fields":     fields,
	}

	var searchResp model.JiraSearchResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+searchPath, body, &searchResp); err != nil {
		return nil, err
	}

	result := &SearchResult{
		Total:      searchResp.Total,
		StartAt:    searchResp.StartAt,
		MaxResults: maxResults,
		Truncated:  searchResp.Total > searchResp.StartAt+len(searchResp.Issues),
		Issues:     make([]model.ParsedIssue, 0, len(searchResp.Issues)),
	}
	for _, issue := range searchResp.Issues {
		result.Issues = append(result.Issues, model.ParseIssue(issue, c.parseOpts))
	}

	logger.GetLogger().Info("jql search completed",
		zap.Int("total", result.Total),
		zap.Int("returned", len(result.Issues)),
		zap.Bool("truncated", result.Truncated),
	)

	return result, nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string, fields []string) (*model.ParsedIssue, error) {
	if strings.TrimSpace(key) == "" {
		return nil, &QueryError{Messages: []string{"issue key must not be empty"}}
	}

	if len(fields) == 0 {
		fields = c.searchFields()
	}
	endpoint := fmt.Sprintf("%s%s/%s?fields=%s",
		c.baseURL, issuePath, url.PathEscape(key), url.QueryEscape(strings.Join(fields, ",")))

	var issue model.JiraIssue
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &issue); err != nil {
		return nil, err
	}

	parsed := model.ParseIssue(issue, c.parseOpts)
	return &parsed, nil
}

// DefaultMaxResults returns the configured default page size.
func (c *Client) DefaultMaxResults() int {
	return c.defaultMax
}

// clampMaxResults applies the default and the configured ceiling.
func (c *Client) clampMaxResults(requested int) int {
	if requested <= 0 {
		requested = c.defaultMax
	}
	if requested > c.ceiling {
		requested = c.ceiling
	}
	return requested
}

func (c *Client) searchFields() []string {
	fields := make([]string, 0, len(defaultFields)+3)
	fields = append(fields, defaultFields...)
	fields = append(fields, c.parseOpts.EpicLinkField, c.parseOpts.StoryPointsField, c.parseOpts.SprintField)
	return fields
}

// doJSON performs one bounded HTTP round trip and decodes the response
// into out, mapping failures onto the error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// covers timeouts, DNS failures, refused connections
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Err: fmt.Errorf("failed to decode jira response: %w", err)}
	}
	return nil
}

// checkStatus maps a non-2xx response onto the error taxonomy.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case http.StatusBadRequest, http.StatusNotFound:
		return &QueryError{Messages: errorMessages(resp)}
	default:
		return &TransientError{Err: fmt.Errorf("jira returned status %d", resp.StatusCode)}
	}
}

// errorMessages extracts Jira's diagnostics from an error response.
func errorMessages(resp *http.Response) []string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(body) == 0 {
		return []string{fmt.Sprintf("jira returned status %d", resp.StatusCode)}
	}

	var jiraErr model.JiraErrorResponse
	if err := json.Unmarshal(body, &jiraErr); err == nil {
		messages := append([]string{}, jiraErr.ErrorMessages...)
		for field, msg := range jiraErr.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
		}
		if len(messages) > 0 {
			return messages
		}
	}
	return []string{fmt.Sprintf("jira returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
}
