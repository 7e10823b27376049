package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "standup"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage standup configuration.

Running bare 'standup config' is the same as 'standup config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# standup configuration
# See: standup config show (for effective values and sources)
# Every key can also be set from the environment, e.g. STANDUP_GITHUB_TOKEN.

# SQLite database for ignored items and notes
# db_path: {{ .DBPath }}

# Default report window in hours
report:
  hours: {{ .ReportHours }}
  # Prebuild the report while 'standup serve' runs, e.g. "30 9 * * 1-5"
  schedule: ""
  timezone: Local

# GitHub (required)
github:
  # Display name shown in the report
  login: "{{ .GitHubLogin }}"
  # Account used in the PR search query
  username: "{{ .GitHubUsername }}"
  # Personal access token (prefer STANDUP_GITHUB_TOKEN)
  token: ""
  # Repositories left out of every report, as owner/name
  ignored_repos: []

# Linear (optional)
linear:
  token: ""
  email: "{{ .LinearEmail }}"

# Google Calendar (optional)
google:
  # Saved OAuth token; meetings are skipped while it is missing
  token_file: {{ .GoogleTokenFile }}
  # Client credentials let expired tokens refresh
  client_id: ""
  client_secret: ""
  ignored_calendars: []
  ignored_meetings: []
  workers: {{ .GoogleWorkers }}

# Optional report summaries
anthropic:
  api_key: ""
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	DBPath          string
	ReportHours     int
	GitHubLogin     string
	GitHubUsername  string
	LinearEmail     string
	GoogleTokenFile string
	GoogleWorkers   int
	AnthropicModel  string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:          viper.GetString("db_path"),
		ReportHours:     viper.GetInt("report.hours"),
		GitHubLogin:     viper.GetString("github.login"),
		GitHubUsername:  viper.GetString("github.username"),
		LinearEmail:     viper.GetString("linear.email"),
		GoogleTokenFile: viper.GetString("google.token_file"),
		GoogleWorkers:   viper.GetInt("google.workers"),
		AnthropicModel:  viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

// Secret marks values that are masked in `config show`.
var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "STANDUP_DB_PATH"},
	{Key: "report.hours", EnvVar: "STANDUP_REPORT_HOURS"},
	{Key: "report.schedule", EnvVar: "STANDUP_REPORT_SCHEDULE"},
	{Key: "report.timezone", EnvVar: "STANDUP_REPORT_TIMEZONE"},
	{Key: "http.timeout", EnvVar: "STANDUP_HTTP_TIMEOUT"},
	{Key: "port", EnvVar: "STANDUP_PORT"},
	{Key: "github.login", EnvVar: "STANDUP_GITHUB_LOGIN"},
	{Key: "github.username", EnvVar: "STANDUP_GITHUB_USERNAME"},
	{Key: "github.token", EnvVar: "STANDUP_GITHUB_TOKEN", Secret: true},
	{Key: "github.ignored_repos", EnvVar: "STANDUP_GITHUB_IGNORED_REPOS"},
	{Key: "github.graphql_url", EnvVar: "STANDUP_GITHUB_GRAPHQL_URL"},
	{Key: "github.rest_url", EnvVar: "STANDUP_GITHUB_REST_URL"},
	{Key: "linear.token", EnvVar: "STANDUP_LINEAR_TOKEN", Secret: true},
	{Key: "linear.email", EnvVar: "STANDUP_LINEAR_EMAIL"},
	{Key: "linear.graphql_url", EnvVar: "STANDUP_LINEAR_GRAPHQL_URL"},
	{Key: "google.token_file", EnvVar: "STANDUP_GOOGLE_TOKEN_FILE"},
	{Key: "google.client_id", EnvVar: "STANDUP_GOOGLE_CLIENT_ID"},
	{Key: "google.client_secret", EnvVar: "STANDUP_GOOGLE_CLIENT_SECRET", Secret: true},
	{Key: "google.calendar_url", EnvVar: "STANDUP_GOOGLE_CALENDAR_URL"},
	{Key: "google.ignored_calendars", EnvVar: "STANDUP_GOOGLE_IGNORED_CALENDARS"},
	{Key: "google.ignored_meetings", EnvVar: "STANDUP_GOOGLE_IGNORED_MEETINGS"},
	{Key: "google.workers", EnvVar: "STANDUP_GOOGLE_WORKERS"},
	{Key: "anthropic.api_key", EnvVar: "STANDUP_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "STANDUP_ANTHROPIC_MODEL"},
}

// maskSecret keeps the last four characters of a secret value.
func maskSecret(v any) string {
	s := fmt.Sprint(v)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(val)
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, e.g. export EDITOR=vim")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'standup config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
