package model

import "encoding/json"

// JiraIssue represents a Jira issue response
type JiraIssue struct {
	Key    string     `json:"key"`
	Fields JiraFields `json:"fields"`

	// RawFields keeps the undecoded fields object so instance-specific
	// custom fields (epic link, story points, sprint) stay reachable.
	RawFields map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the raw fields map.
func (i *JiraIssue) UnmarshalJSON(data []byte) error {
	type plain JiraIssue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = JiraIssue(p)

	var envelope struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		i.RawFields = envelope.Fields
	}
	return nil
}

// JiraFields represents the fields in a Jira issue
type JiraFields struct {
	Summary                  string           `json:"summary"`
	Description              json.RawMessage  `json:"description"`
	IssueType                *JiraNamedField  `json:"issuetype"`
	Status                   *JiraStatus      `json:"status"`
	Priority                 *JiraNamedField  `json:"priority"`
	Assignee                 *JiraUser        `json:"assignee"`
	Reporter                 *JiraUser        `json:"reporter"`
	Components               []JiraNamedField `json:"components"`
	Created                  string           `json:"created"`
	Updated                  string           `json:"updated"`
	StatusCategoryChangeDate string           `json:"statuscategorychangedate"`
	TimeSpent                *int64           `json:"timespent"`
	TimeOriginalEstimate     *int64           `json:"timeoriginalestimate"`
	DueDate                  string           `json:"duedate"`
	Parent                   *JiraParent      `json:"parent"`
}

// DescriptionText returns the description as plain text. Jira API v2
// returns a string; anything else (e.g. an ADF document) is reduced to
// the empty string rather than leaking raw JSON to the caller.
func (f *JiraFields) DescriptionText() string {
	if len(f.Description) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Description, &s); err == nil {
		return s
	}
	return ""
}

// JiraStatus represents the status of a Jira issue
type JiraStatus struct {
	Name string `json:"name"`
}

// JiraNamedField is any Jira field whose useful content is its name
// (issue type, priority, component, resolution).
type JiraNamedField struct {
	Name string `json:"name"`
}

// JiraUser represents a Jira user
type JiraUser struct {
	DisplayName string `json:"displayName"`
}

// JiraParent represents the parent (usually the epic) of an issue
type JiraParent struct {
	Key    string     `json:"key"`
	Fields JiraFields `json:"fields"`
}

// JiraSearchResponse represents the response from a Jira search
type JiraSearchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []JiraIssue `json:"issues"`
}

// JiraErrorResponse represents the diagnostic body Jira returns on a
// failed request.
type JiraErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
