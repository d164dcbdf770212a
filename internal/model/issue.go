package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseOptions carries the instance-specific custom field IDs used
// when projecting an issue.
type ParseOptions struct {
	EpicLinkField    string
	StoryPointsField string
	SprintField      string
}

// Duration is a day count with a human readable rendering.
type Duration struct {
	Days      *int   `json:"days"`
	Formatted string `json:"formatted"`
}

// TimeLog is a tracked or estimated amount of work.
type TimeLog struct {
	Seconds   *int64 `json:"seconds"`
	Formatted string `json:"formatted"`
}

// ParentIssue is the parent (epic) reference on a parsed issue.
type ParentIssue struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// ParsedIssue is the projection of a Jira issue handed to the
// assistant: the management-relevant fields, with dates normalized and
// durations pre-computed.
type ParsedIssue struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Assignee    string   `json:"assignee"`
	Reporter    string   `json:"reporter"`
	Components  []string `json:"components"`

	Created             string    `json:"created"`
	Updated             string    `json:"updated"`
	Duration            Duration  `json:"duration"`
	TimeInCurrentStatus *Duration `json:"time_in_current_status,omitempty"`

	TimeLogged TimeLog `json:"time_logged"`
	Estimate   TimeLog `json:"estimate"`

	Parent      *ParentIssue `json:"parent,omitempty"`
	EpicLink    string       `json:"epic_link,omitempty"`
	StoryPoints *float64     `json:"story_points,omitempty"`
	Sprint      string       `json:"sprint,omitempty"`
	DueDate     string       `json:"due_date"`
}

// jiraDateLayouts covers the timestamp shapes Jira emits.
var jiraDateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02",
}

// ParseIssue extracts the management-relevant information from a Jira
// issue.
func ParseIssue(issue JiraIssue, opts ParseOptions) ParsedIssue {
	fields := issue.Fields

	result := ParsedIssue{
		Key:         issue.Key,
		Summary:     fields.Summary,
		Description: fields.DescriptionText(),
		Components:  []string{},
	}

	if fields.IssueType != nil {
		result.Type = fields.IssueType.Name
	}
	if fields.Status != nil {
		result.Status = fields.Status.Name
	}
	if fields.Priority != nil {
		result.Priority = fields.Priority.Name
	}

	result.Assignee = "Unassigned"
	if fields.Assignee != nil && fields.Assignee.DisplayName != "" {
		result.Assignee = fields.Assignee.DisplayName
	}
	if fields.Reporter != nil {
		result.Reporter = fields.Reporter.DisplayName
	}

	for _, comp := range fields.Components {
		result.Components = append(result.Components, comp.Name)
	}

	created := parseJiraDate(fields.Created)
	updated := parseJiraDate(fields.Updated)
	statusChanged := parseJiraDate(fields.StatusCategoryChangeDate)

	result.Created = formatDay(created)
	result.Updated = formatDay(updated)
	result.Duration = spanBetween(created, updated)
	if statusChanged != nil && updated != nil {
		span := spanBetween(statusChanged, updated)
		result.TimeInCurrentStatus = &span
	}

	result.TimeLogged = formatTimeLog(fields.TimeSpent, "No time logged")
	result.Estimate = formatTimeLog(fields.TimeOriginalEstimate, "No estimate provided")

	if fields.Parent != nil {
		parent := &ParentIssue{
			Key:     fields.Parent.Key,
			Summary: fields.Parent.Fields.Summary,
		}
		if fields.Parent.Fields.Status != nil {
			parent.Status = fields.Parent.Fields.Status.Name
		}
		result.Parent = parent
	}

	result.EpicLink = rawString(issue.RawFields, opts.EpicLinkField)
	result.StoryPoints = rawFloat(issue.RawFields, opts.StoryPointsField)
	result.Sprint = rawSprintName(issue.RawFields, opts.SprintField)

	result.DueDate = "No due date"
	if fields.DueDate != "" {
		result.DueDate = fields.DueDate
	}

	return result
}

// parseJiraDate tries each known layout and returns nil when none fit.
func parseJiraDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range jiraDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.Format("2006-01-02")
}

// spanBetween computes the elapsed time between two dates. Spans under
// 30 days include hour and minute precision.
func spanBetween(from, to *time.Time) Duration {
	if from == nil || to == nil {
		return Duration{Formatted: "Unknown"}
	}

	elapsed := to.Sub(*from)
	days := int(elapsed.Hours() / 24)
	formatted := fmt.Sprintf("%d days", days)
	if days < 30 {
		hours := int(elapsed.Hours()) % 24
		minutes := int(elapsed.Minutes()) % 60
		formatted = fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, minutes)
	}
	return Duration{Days: &days, Formatted: formatted}
}

func formatTimeLog(seconds *int64, missing string) TimeLog {
	if seconds == nil {
		return TimeLog{Formatted: missing}
	}
	hours := *seconds / 3600
	minutes := (*seconds % 3600) / 60
	return TimeLog{
		Seconds:   seconds,
		Formatted: fmt.Sprintf("%dh %dm", hours, minutes),
	}
}

func rawString(raw map[string]json.RawMessage, field string) string {
	data, ok := raw[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

func rawFloat(raw map[string]json.RawMessage, field string) *float64 {
	data, ok := raw[field]
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}

// rawSprintName pulls the active sprint name from the sprint custom
// field. Jira Cloud returns a list of objects with a name; Jira Server
// returns a list of serialized Java strings with a name=... attribute.
// The last entry is the most recent sprint.
func rawSprintName(raw map[string]json.RawMessage, field string) string {
	data, ok := raw[field]
	if !ok {
		return ""
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &objects); err == nil && len(objects) > 0 {
		if name := objects[len(objects)-1].Name; name != "" {
			return name
		}
	}

	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil && len(strs) > 0 {
		return sprintNameFromJava(strs[len(strs)-1])
	}
	return ""
}

func sprintNameFromJava(s string) string {
	for _, attr := range strings.Split(s, ",") {
		if name, found := strings.CutPrefix(strings.TrimSpace(attr), "name="); found {
			return strings.TrimSuffix(name, "]")
		}
	}
	return ""
}
