package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CustomFields holds the custom field IDs for this Jira instance.
// Field IDs differ between instances, so they are configurable.
type CustomFields struct {
	EpicLink    string // e.g. customfield_10014
	StoryPoints string // e.g. customfield_10016
	Sprint      string // e.g. customfield_10020
}

// Limits holds the default result limits and day windows for the
// report tools.
type Limits struct {
	SearchIssues      int
	PriorityBacklog   int
	ActiveWork        int
	ActiveEpics       int
	RecentCompletions int
	TeamMetrics       int
	BlockedIssues     int
	StaleIssues       int

	DaysRecentCompletions int
	DaysTeamMetrics       int
	DaysStaleIssues       int
}

// Config holds all configuration for the application
type Config struct {
	// Jira configuration
	JiraURL      string // Required: Jira base URL, e.g. https://example.atlassian.net
	JiraUsername string // Required: Jira account email
	JiraAPIToken string // Required: Jira API token

	// Custom field IDs, adjustable per Jira instance
	CustomFields CustomFields

	// Default result limits for tools
	Limits Limits

	// DefaultTeamName scopes the report tools when no team is given
	DefaultTeamName string

	// MaxResultsCeiling bounds any max_results argument a caller passes
	MaxResultsCeiling int

	// Timeout bounds a single Jira HTTP round trip
	Timeout time.Duration

	// Log level
	LogLevel string
}

var (
	// instance holds the singleton config instance
	instance *Config
)

// Get returns the singleton config instance
func Get() *Config {
	if instance == nil {
		panic("config not initialized")
	}
	return instance
}

// Load creates a new Config instance from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Load required values
	requiredVars := map[string]*string{
		"JIRA_URL":       &cfg.JiraURL,
		"JIRA_USERNAME":  &cfg.JiraUsername,
		"JIRA_API_TOKEN": &cfg.JiraAPIToken,
	}

	var missingVars []string
	for env, ptr := range requiredVars {
		*ptr = os.Getenv(env)
		if *ptr == "" {
			missingVars = append(missingVars, env)
		}
	}

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	cfg.JiraURL = strings.TrimRight(cfg.JiraURL, "/")

	cfg.CustomFields = CustomFields{
		EpicLink:    getEnv("CUSTOM_FIELD_EPIC_LINK", "customfield_10014"),
		StoryPoints: getEnv("CUSTOM_FIELD_STORY_POINTS", "customfield_10016"),
		Sprint:      getEnv("CUSTOM_FIELD_SPRINT", "customfield_10020"),
	}

	limits, err := loadLimits()
	if err != nil {
		return nil, err
	}
	cfg.Limits = limits

	cfg.DefaultTeamName = getEnv("DEFAULT_TEAM_NAME", "Data Pod")

	ceiling, err := getEnvInt("MAX_RESULTS_CEILING", 100)
	if err != nil {
		return nil, err
	}
	if ceiling <= 0 {
		return nil, fmt.Errorf("MAX_RESULTS_CEILING must be positive, got %d", ceiling)
	}
	cfg.MaxResultsCeiling = ceiling

	timeoutSeconds, err := getEnvInt("JIRA_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if timeoutSeconds <= 0 {
		return nil, fmt.Errorf("JIRA_TIMEOUT_SECONDS must be positive, got %d", timeoutSeconds)
	}
	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Store the instance
	instance = cfg

	return cfg, nil
}

func loadLimits() (Limits, error) {
	limits := Limits{}

	intVars := map[string]struct {
		ptr *int
		def int
	}{
		"DEFAULT_LIMIT_SEARCH_ISSUES":      {&limits.SearchIssues, 50},
		"DEFAULT_LIMIT_PRIORITY_BACKLOG":   {&limits.PriorityBacklog, 20},
		"DEFAULT_LIMIT_ACTIVE_WORK":        {&limits.ActiveWork, 20},
		"DEFAULT_LIMIT_ACTIVE_EPICS":       {&limits.ActiveEpics, 20},
		"DEFAULT_LIMIT_RECENT_COMPLETIONS": {&limits.RecentCompletions, 20},
		"DEFAULT_LIMIT_TEAM_METRICS":       {&limits.TeamMetrics, 20},
		"DEFAULT_LIMIT_BLOCKED_ISSUES":     {&limits.BlockedIssues, 20},
		"DEFAULT_LIMIT_STALE_ISSUES":       {&limits.StaleIssues, 20},
		"DEFAULT_DAYS_RECENT_COMPLETIONS":  {&limits.DaysRecentCompletions, 7},
		"DEFAULT_DAYS_TEAM_METRICS":        {&limits.DaysTeamMetrics, 30},
		"DEFAULT_DAYS_STALE_ISSUES":        {&limits.DaysStaleIssues, 14},
	}

	for env, v := range intVars {
		val, err := getEnvInt(env, v.def)
		if err != nil {
			return Limits{}, err
		}
		if val <= 0 {
			return Limits{}, fmt.Errorf("%s must be positive, got %d", env, val)
		}
		*v.ptr = val
	}

	return limits, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}
