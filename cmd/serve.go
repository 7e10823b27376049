package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inesp/standup-report/internal/api"
	"github.com/inesp/standup-report/internal/daemon"
	"github.com/inesp/standup-report/internal/jobs"
	"github.com/inesp/standup-report/internal/report"
	webui "github.com/inesp/standup-report/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report API and dashboard",
	Long: `Start an HTTP server with the report API under /api/v1 and the
dashboard at /. Runs in the foreground until interrupted.

Use 'standup serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context(), viper.GetInt("port"))
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8000, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	dir, _ := configDirFunc()
	return daemon.ForServer(dir)
}

func serveLogPath() string {
	dir, _ := configDirFunc()
	return filepath.Join(dir, daemon.ServerLogName)
}

// newServeHandler mounts the API and the dashboard on one mux. The report
// endpoint answers 503 while the config is incomplete; overrides still work.
// The returned cron is nil unless report.schedule is set.
func newServeHandler(ctx context.Context) (http.Handler, *jobs.Cron, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}

	hours := viper.GetInt("report.hours")
	var (
		reports api.ReportBuilder
		latest  *report.Latest
		sched   *jobs.Cron
	)
	cfg, err := loadConfig()
	if err != nil {
		ui.Warning("Reports disabled: %v", err)
	} else {
		hours = cfg.ReportHours
		builder, err := newReportBuilder(ctx, cfg, s)
		if err != nil {
			return nil, nil, err
		}
		reports = builder

		if cfg.ReportSchedule != "" {
			loc, err := cfg.Location()
			if err != nil {
				return nil, nil, fmt.Errorf("report.timezone: %w", err)
			}
			latest = &report.Latest{}
			if sched, err = jobs.NewCron(cfg.ReportSchedule, loc, builder, latest, hours); err != nil {
				return nil, nil, err
			}
		}
	}

	dashboard, err := webui.Handler()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize UI handler: %w", err)
	}

	apiServer := api.NewServer(s, reports, newLLMClient(), hours)
	if latest != nil {
		apiServer.WithLatest(latest)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard)
	return mux, sched, nil
}

func serveRun(ctx context.Context, port int) error {
	handler, sched, err := newServeHandler(ctx)
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer sched.Stop()
		ui.Info("Next scheduled report: %s", sched.Next().Format("Mon 2006-01-02 15:04 MST"))
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	ui.Info("Serving standup at http://localhost%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return &daemon.AlreadyRunningError{PID: pid}
	}

	port := viper.GetInt("port")
	args := []string{"serve", "--port", strconv.Itoa(port)}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	if dryRun {
		ui.DryRunMsg("Would start server on port %d (log: %s)", port, serveLogPath())
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	detachProcess(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if err := pf.Claim(child.Process.Pid); err != nil {
		_ = child.Process.Kill()
		return err
	}
	_ = child.Process.Release()

	ui.Success("Server started on http://localhost:%d (pid %d)", port, child.Process.Pid)
	ui.Info("Log: %s", serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		pf.RemoveStale()
		return fmt.Errorf("server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if _, alive := pf.IsRunning(); !alive {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if _, alive := pf.IsRunning(); alive {
		ui.Warning("Server did not stop in %s, killing it", shutdownTimeout)
		_ = pf.Signal(sigKILL())
	}

	_ = pf.Remove()
	ui.Success("Server stopped (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		if pf.RemoveStale() {
			ui.VerboseLog("Removed stale PID file %s", pf.Path)
		}
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server is running (pid %d)", pid)
	ui.Info("Log: %s", serveLogPath())
	return nil
}
