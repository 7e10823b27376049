package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/errs"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v, t.TempDir())
	return v
}

func TestLoad_MissingRequired(t *testing.T) {
	v := newViper(t)
	v.Set("github.login", "octo")

	_, err := Load(v)
	require.Error(t, err)

	var ce *errs.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"github.username", "github.token"}, ce.Missing)
}

func TestLoad_Defaults(t *testing.T) {
	v := newViper(t)
	v.Set("github.login", "octo")
	v.Set("github.username", "octocat")
	v.Set("github.token", "ghp_x")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultGitHubGraphQLURL, cfg.GitHub.GraphQLURL)
	assert.Equal(t, DefaultLinearGraphQLURL, cfg.Linear.GraphQLURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 24, cfg.ReportHours)
	assert.Equal(t, 4, cfg.Google.Workers)
	assert.False(t, cfg.Linear.Configured())
	assert.False(t, cfg.Google.Configured())
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper(t)
	v.Set("github.login", "octo")
	v.Set("github.username", "octocat")
	v.Set("github.token", "ghp_x")
	v.Set("github.ignored_repos", []string{"acme/legacy", " ", "acme/old"})
	v.Set("linear.token", "lin_api_x")
	v.Set("linear.email", "me@example.com")
	v.Set("http.timeout", "5s")
	v.Set("report.hours", 72)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.True(t, cfg.Linear.Configured())
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 72, cfg.ReportHours)
	assert.Equal(t, map[string]struct{}{"acme/legacy": {}, "acme/old": {}}, cfg.GitHub.IgnoredRepoSet())
}

func TestGoogleConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	g := Google{TokenFile: path}
	assert.False(t, g.Configured())

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	assert.True(t, g.Configured())
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Timezone = "Mars/Olympus"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestLoad_Schedule(t *testing.T) {
	v := newViper(t)
	v.Set("report.schedule", " 30 9 * * 1-5 ")

	cfg, _ := Load(v)
	assert.Equal(t, "30 9 * * 1-5", cfg.ReportSchedule)
	assert.Equal(t, "Local", cfg.Timezone)
}
