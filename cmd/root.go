package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inesp/standup-report/internal/calendar"
	"github.com/inesp/standup-report/internal/config"
	"github.com/inesp/standup-report/internal/github"
	"github.com/inesp/standup-report/internal/linear"
	"github.com/inesp/standup-report/internal/output"
	"github.com/inesp/standup-report/internal/report"
	"github.com/inesp/standup-report/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "standup",
	Short: "Standup report - what you did and what is next",
	Long: `standup aggregates your recent GitHub pull requests, Linear issue
activity and Google Calendar meetings into a single standup report.

Running bare 'standup' is the same as 'standup report'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context(), viper.GetInt("report.hours"), "table", false)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/standup/config.yaml)")
}

func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load(".env")

	configDir, err := configDirFunc()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
		os.Exit(1)
	}

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STANDUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper(), configDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// The store is opened lazily so config/version work without a db.
}

// loadConfig builds the effective configuration from viper. The config is
// returned alongside a *errs.ConfigurationError so diagnostics can go on.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newReportBuilder wires the configured sources into a report builder.
// Linear and Google Calendar are optional and left out when not configured.
// An unreadable calendar token is reported as a source error, not returned.
func newReportBuilder(ctx context.Context, cfg *config.Config, s store.Store) (*report.Builder, error) {
	gh, err := github.New(cfg.GitHub, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	var issues report.IssueSource
	if cfg.Linear.Configured() {
		issues = linear.New(cfg.Linear, cfg.HTTPTimeout)
	} else {
		slog.Info("linear not configured, skipping issues")
	}

	var meetings report.MeetingSource
	if cfg.Google.Configured() {
		if ts, err := calendar.TokenSource(ctx, cfg.Google); err != nil {
			slog.Warn("google calendar token unusable", "token_file", cfg.Google.TokenFile, "error", err)
			meetings = report.UnavailableMeetings(err)
		} else {
			meetings = calendar.New(ctx, cfg.Google, ts, cfg.HTTPTimeout)
		}
	} else {
		slog.Info("google calendar not configured, skipping meetings")
	}

	return report.NewBuilder(gh, issues, meetings, s), nil
}
