package jira

import (
	"fmt"
	"strings"
)

// QueryError means Jira rejected the query itself (bad JQL, unknown
// field) or the query was invalid before it was sent. It carries
// Jira's own diagnostics and is not retryable.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	if len(e.Messages) == 0 {
		return "invalid query"
	}
	return strings.Join(e.Messages, "; ")
}

// AuthError means Jira refused the configured credentials. Retrying
// without fixing the configuration cannot succeed.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("jira authentication failed (status %d): check JIRA_USERNAME and JIRA_API_TOKEN", e.StatusCode)
}

// TransientError means the request failed for reasons unrelated to the
// query: network failure, timeout, or a Jira-side outage. Safe to
// retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("jira request failed: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
