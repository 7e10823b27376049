package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inesp/standup-report/internal/calendar"
	"github.com/inesp/standup-report/internal/errs"
	"github.com/inesp/standup-report/internal/github"
	"github.com/inesp/standup-report/internal/linear"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and connections",
	Long: `Check that the configuration is complete and every configured source
answers: GitHub (GraphQL and REST), Linear, Google Calendar and the local
database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// describeErr prefers the remote's own messages for diagnostics.
func describeErr(err error) string {
	var remoteErr *errs.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.UserDescription()
	}
	return err.Error()
}

func checkRun(ctx context.Context) error {
	failed := 0
	fail := func(format string, a ...any) {
		failed++
		ui.Error(format, a...)
	}

	cfg, err := loadConfig()
	configOK := err == nil
	if err != nil {
		var cfgErr *errs.ConfigurationError
		if !errors.As(err, &cfgErr) {
			return err
		}
		fail("Config: %v", err)
	} else {
		ui.Success("Config: complete")
	}

	ui.Section("GitHub")
	if configOK {
		gh, err := github.New(cfg.GitHub, cfg.HTTPTimeout)
		if err != nil {
			fail("GitHub client: %v", err)
		} else {
			if login, err := gh.Viewer(ctx); err != nil {
				fail("GraphQL: %s", describeErr(err))
			} else {
				ui.Success("GraphQL: authenticated as %s", login)
			}
			if login, err := gh.RESTViewer(ctx); err != nil {
				fail("REST: %s", describeErr(err))
			} else {
				ui.Success("REST: authenticated as %s", login)
			}
		}
	} else {
		ui.Warning("Skipped until the config is complete")
	}

	ui.Section("Linear")
	if cfg.Linear.Configured() {
		if email, err := linear.New(cfg.Linear, cfg.HTTPTimeout).Viewer(ctx); err != nil {
			fail("Viewer: %s", describeErr(err))
		} else {
			if email != cfg.Linear.Email {
				ui.Warning("Token belongs to %s, reports use %s", email, cfg.Linear.Email)
			}
			ui.Success("Viewer: %s", email)
		}
	} else {
		ui.Info("Not configured (set linear.token and linear.email)")
	}

	ui.Section("Google Calendar")
	switch status, msg := calendar.Status(cfg.Google); status {
	case calendar.AuthAuthenticated:
		ui.Success("%s", msg)
	case calendar.AuthMissingCredentials:
		ui.Info("Not configured: %s", msg)
	default:
		fail("%s: %s", status, msg)
	}

	ui.Section("Database")
	s, err := getStore()
	if err != nil {
		fail("%v", err)
	} else {
		h := s.Health(ctx)
		if h.Status != "healthy" {
			fail("%s: %s", h.Path, h.Error)
		} else {
			ui.Success("%s (%d ignored, %d notes)", h.Path, h.RowCounts["ignored_items"], h.RowCounts["notes"])
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}
