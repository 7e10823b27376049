// Package config turns viper settings into one explicit Config value that is
// built at startup and passed to every component that needs it.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/inesp/standup-report/internal/errs"
)

// Default endpoints. Each can be overridden, which is how tests point the
// clients at httptest servers.
const (
	DefaultGitHubGraphQLURL = "https://api.github.com/graphql"
	DefaultGitHubRESTURL    = "https://api.github.com/"
	DefaultLinearGraphQLURL = "https://api.linear.app/graphql"
	DefaultCalendarURL      = "https://www.googleapis.com/calendar/v3"
	DefaultTokenURL         = "https://oauth2.googleapis.com/token"
	DefaultAnthropicModel   = "claude-haiku-4-5-20251001"
)

type GitHub struct {
	Login        string
	Username     string
	Token        string
	IgnoredRepos []string
	GraphQLURL   string
	RESTURL      string
}

type Linear struct {
	Token      string
	Email      string
	GraphQLURL string
}

// Configured reports whether the issue tracker can be queried at all.
func (l Linear) Configured() bool {
	return l.Token != "" && l.Email != ""
}

type Google struct {
	TokenFile        string
	ClientID         string
	ClientSecret     string
	CalendarURL      string
	IgnoredCalendars []string
	IgnoredMeetings  []string
	Workers          int
}

// Configured reports whether a saved calendar token is available.
func (g Google) Configured() bool {
	if g.TokenFile == "" {
		return false
	}
	_, err := os.Stat(g.TokenFile)
	return err == nil
}

type Anthropic struct {
	APIKey string
	Model  string
}

// Config is the full runtime configuration.
type Config struct {
	GitHub    GitHub
	Linear    Linear
	Google    Google
	Anthropic Anthropic

	DBPath      string
	HTTPTimeout time.Duration
	ReportHours int
	Port        int

	// ReportSchedule is a cron spec for prebuilding reports while serving.
	// Empty disables it.
	ReportSchedule string
	Timezone       string
}

// Location resolves Timezone; empty or "Local" is the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("github.login", "")
	v.SetDefault("github.username", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.ignored_repos", []string{})
	v.SetDefault("github.graphql_url", DefaultGitHubGraphQLURL)
	v.SetDefault("github.rest_url", DefaultGitHubRESTURL)

	v.SetDefault("linear.token", "")
	v.SetDefault("linear.email", "")
	v.SetDefault("linear.graphql_url", DefaultLinearGraphQLURL)

	v.SetDefault("google.token_file", filepath.Join(configDir, "google_token.json"))
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.calendar_url", DefaultCalendarURL)
	v.SetDefault("google.ignored_calendars", []string{})
	v.SetDefault("google.ignored_meetings", []string{})
	v.SetDefault("google.workers", 4)

	v.SetDefault("db_path", filepath.Join(configDir, "standup.db"))
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("report.hours", 24)
	v.SetDefault("report.schedule", "")
	v.SetDefault("report.timezone", "Local")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", DefaultAnthropicModel)
	v.SetDefault("port", 8000)
}

// Load reads every setting from v. Missing code-hosting identity or token is
// a *errs.ConfigurationError naming all of the absent keys; the issue tracker
// and calendar are optional.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GitHub: GitHub{
			Login:        strings.TrimSpace(v.GetString("github.login")),
			Username:     strings.TrimSpace(v.GetString("github.username")),
			Token:        strings.TrimSpace(v.GetString("github.token")),
			IgnoredRepos: v.GetStringSlice("github.ignored_repos"),
			GraphQLURL:   orDefault(v.GetString("github.graphql_url"), DefaultGitHubGraphQLURL),
			RESTURL:      orDefault(v.GetString("github.rest_url"), DefaultGitHubRESTURL),
		},
		Linear: Linear{
			Token:      strings.TrimSpace(v.GetString("linear.token")),
			Email:      strings.TrimSpace(v.GetString("linear.email")),
			GraphQLURL: orDefault(v.GetString("linear.graphql_url"), DefaultLinearGraphQLURL),
		},
		Google: Google{
			TokenFile:        v.GetString("google.token_file"),
			ClientID:         v.GetString("google.client_id"),
			ClientSecret:     v.GetString("google.client_secret"),
			CalendarURL:      orDefault(v.GetString("google.calendar_url"), DefaultCalendarURL),
			IgnoredCalendars: v.GetStringSlice("google.ignored_calendars"),
			IgnoredMeetings:  v.GetStringSlice("google.ignored_meetings"),
			Workers:          v.GetInt("google.workers"),
		},
		Anthropic: Anthropic{
			APIKey: v.GetString("anthropic.api_key"),
			Model:  orDefault(v.GetString("anthropic.model"), DefaultAnthropicModel),
		},
		DBPath:      v.GetString("db_path"),
		HTTPTimeout: v.GetDuration("http.timeout"),
		ReportHours: v.GetInt("report.hours"),
		Port:        v.GetInt("port"),

		ReportSchedule: strings.TrimSpace(v.GetString("report.schedule")),
		Timezone:       strings.TrimSpace(v.GetString("report.timezone")),
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.ReportHours <= 0 {
		cfg.ReportHours = 24
	}
	if cfg.Google.Workers <= 0 {
		cfg.Google.Workers = 4
	}

	var missing []string
	if cfg.GitHub.Login == "" {
		missing = append(missing, "github.login")
	}
	if cfg.GitHub.Username == "" {
		missing = append(missing, "github.username")
	}
	if cfg.GitHub.Token == "" {
		missing = append(missing, "github.token")
	}
	if len(missing) > 0 {
		return cfg, &errs.ConfigurationError{Missing: missing}
	}
	return cfg, nil
}

// IgnoredRepoSet returns the configured repository slugs as a set.
func (g GitHub) IgnoredRepoSet() map[string]struct{} {
	return toSet(g.IgnoredRepos)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
