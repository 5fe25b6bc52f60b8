// Package main provides the CLI entrypoint for strafeval.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/strafeval/internal/config"
	"github.com/verte-zerg/strafeval/internal/detector"
	"github.com/verte-zerg/strafeval/internal/feed"
	"github.com/verte-zerg/strafeval/internal/ingest"
	"github.com/verte-zerg/strafeval/internal/logger"
	"github.com/verte-zerg/strafeval/internal/model"
	"github.com/verte-zerg/strafeval/internal/session"
	"github.com/verte-zerg/strafeval/internal/stats"
	"github.com/verte-zerg/strafeval/internal/statsui"
	"github.com/verte-zerg/strafeval/internal/store"
	"github.com/verte-zerg/strafeval/internal/tui"
)

const (
	defaultSource         = "ws"
	defaultShotWindowMs   = 300
	defaultDemoIntervalMs = 1500
	defaultCurveWindow    = 20
	defaultLogLevel       = "info"
)

const (
	sourceWS    = "ws"
	sourceStdin = "stdin"
	sourceFile  = "file"
	sourceDemo  = "demo"
)

var (
	liveSource       string
	liveListen       string
	liveFile         string
	liveFromStart    bool
	liveDemoInterval int
	liveRequireShot  bool
	liveShotWindow   int
	liveNoHistory    bool
	liveHeadless     bool

	replayRequireShot bool
	replayShotWindow  int
	replayMetrics     bool

	historySince       string
	historyLast        int
	historyCurveWindow int
	historyPrint       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "strafeval",
		Short:         "Live counter-strafe analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runLiveCmd,
	}

	rootCmd.Flags().StringVar(&liveSource, "source", defaultSource, "event source: ws, stdin, file or demo")
	rootCmd.Flags().StringVar(&liveListen, "listen", feed.DefaultListen, "websocket listen address")
	rootCmd.Flags().StringVar(&liveFile, "file", "", "JSON-lines file to follow (source file)")
	rootCmd.Flags().BoolVar(&liveFromStart, "from-start", false, "replay existing lines before following the file")
	rootCmd.Flags().IntVar(&liveDemoInterval, "demo-interval", defaultDemoIntervalMs, "pause between demo strafes in ms")
	rootCmd.Flags().BoolVar(&liveRequireShot, "require-shot", false, "drop strafes without a shot in the window")
	rootCmd.Flags().IntVar(&liveShotWindow, "shot-window", defaultShotWindowMs, "shot window in ms")
	rootCmd.Flags().BoolVar(&liveNoHistory, "no-history", false, "do not save session summaries")
	rootCmd.Flags().BoolVar(&liveHeadless, "headless", false, "run without the TUI and print the report on exit")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// loadFileConfig reads .env files and the TOML config. Environment values
// override the file.
func loadFileConfig() (config.FileConfig, error) {
	if err := config.LoadEnv(config.DefaultEnvPath(), ".env"); err != nil {
		return config.FileConfig{}, err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(&fileCfg)
	return fileCfg, nil
}

func runLiveCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "source", &liveSource, fileCfg.Feed.Source)
	applyStringConfig(cmd, "listen", &liveListen, fileCfg.Feed.Listen)
	applyStringConfig(cmd, "file", &liveFile, fileCfg.Feed.File)
	applyIntConfig(cmd, "demo-interval", &liveDemoInterval, fileCfg.Feed.DemoIntervalMs)
	applyBoolConfig(cmd, "require-shot", &liveRequireShot, fileCfg.Session.RequireShot)
	applyIntConfig(cmd, "shot-window", &liveShotWindow, fileCfg.Session.ShotWindowMs)
	if fileCfg.Session.History != nil && !cmd.Flags().Changed("no-history") {
		liveNoHistory = !*fileCfg.Session.History
	}

	cfg := model.Config{
		Source:       strings.ToLower(strings.TrimSpace(liveSource)),
		Listen:       liveListen,
		File:         liveFile,
		DemoInterval: time.Duration(liveDemoInterval) * time.Millisecond,
		RequireShot:  liveRequireShot,
		ShotWindow:   time.Duration(liveShotWindow) * time.Millisecond,
		History:      !liveNoHistory,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	if liveHeadless {
		logger.Setup(os.Stderr, logLevel(fileCfg.Log))
	} else {
		closeLog, err := setupLogFile(fileCfg.Log)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	var history *store.Store
	if cfg.History {
		history, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := history.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	in := ingest.New(session.New(), detector.Options{
		ShotWindow:  cfg.ShotWindow,
		RequireShot: cfg.RequireShot,
	})
	logger.Info("session started", "source", cfg.Source, "require_shot", cfg.RequireShot, "shot_window", cfg.ShotWindow)

	if liveHeadless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runHeadless(ctx, cfg, newSource(cfg), in, history, cmd.OutOrStdout())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs := startSource(ctx, cfg, newSource(cfg))

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.Source == sourceStdin {
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(tui.NewModel(cfg, in, msgs, history), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// startSource runs src on its own goroutine and returns the channel it feeds.
func startSource(ctx context.Context, cfg model.Config, src feed.Source) <-chan feed.Message {
	msgs := make(chan feed.Message, 64)
	go func() {
		err := src.Run(ctx, msgs)
		if err != nil && ctx.Err() == nil {
			logger.Error("source stopped", "source", cfg.Source, "error", err)
		}
		// Only finite sources close the channel; server handlers may still
		// be delivering after Run returns.
		if cfg.Source == sourceStdin {
			close(msgs)
		}
	}()
	return msgs
}

// runHeadless ingests live input without a terminal UI until ctx is done or
// a finite source ends, then prints the report and saves the session.
func runHeadless(ctx context.Context, cfg model.Config, src feed.Source, in *ingest.Ingestor, history *store.Store, w io.Writer) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	err := in.Run(runCtx, startSource(runCtx, cfg, src))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to ingest: %w", err)
	}
	in.Flush()

	snap := in.Store().Snapshot()
	report := stats.BuildReport(snap)
	if err := stats.RenderReport(w, report); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, report.MetricsLine()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if history == nil || snap.Empty() {
		return nil
	}
	summary := report.Summary(snap.StartedAt, time.Now())
	if _, err := history.InsertSummary(context.Background(), summary, report.Buckets()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	logger.Info("session saved", "session_id", summary.SessionID, "total", summary.Total)
	return nil
}

func newSource(cfg model.Config) feed.Source {
	switch cfg.Source {
	case sourceStdin:
		return &feed.Reader{R: os.Stdin}
	case sourceFile:
		return &feed.Tail{Path: cfg.File, FromStart: liveFromStart}
	case sourceDemo:
		return &feed.Demo{Interval: cfg.DemoInterval}
	default:
		return &feed.Server{Addr: cfg.Listen}
	}
}

func logLevel(cfg config.LogConfig) string {
	if cfg.Level != nil {
		return *cfg.Level
	}
	return defaultLogLevel
}

// setupLogFile redirects the logger away from the terminal while a TUI owns
// it. The returned func closes the file.
func setupLogFile(cfg config.LogConfig) (func(), error) {
	level := logLevel(cfg)
	path := config.DefaultLogPath()
	if cfg.File != nil && strings.TrimSpace(*cfg.File) != "" {
		path = *cfg.File
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.Setup(f, level)
	return func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}, nil
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Analyze a recorded JSON-lines feed",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().BoolVar(&replayRequireShot, "require-shot", false, "drop strafes without a shot in the window")
	cmd.Flags().IntVar(&replayShotWindow, "shot-window", defaultShotWindowMs, "shot window in ms")
	cmd.Flags().BoolVar(&replayMetrics, "metrics", false, "print only the metrics line")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyBoolConfig(cmd, "require-shot", &replayRequireShot, fileCfg.Session.RequireShot)
	applyIntConfig(cmd, "shot-window", &replayShotWindow, fileCfg.Session.ShotWindowMs)
	if replayShotWindow <= 0 {
		return fmt.Errorf("--shot-window must be > 0")
	}
	logger.Setup(os.Stderr, logLevel(fileCfg.Log))

	opts := detector.Options{
		ShotWindow:  time.Duration(replayShotWindow) * time.Millisecond,
		RequireShot: replayRequireShot,
	}
	return replayFile(cmd.Context(), args[0], cmd.OutOrStdout(), opts, replayMetrics)
}

// replayFile runs every line of path through a fresh engine and writes the
// resulting report to w.
func replayFile(ctx context.Context, path string, w io.Writer, opts detector.Options, metricsOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open feed: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	msgs := make(chan feed.Message, 64)
	readErr := make(chan error, 1)
	go func() {
		readErr <- (&feed.Reader{R: f}).Run(ctx, msgs)
		close(msgs)
	}()

	st := session.New()
	if err := ingest.New(st, opts).Replay(ctx, msgs); err != nil {
		return err
	}
	if err := <-readErr; err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}

	report := stats.BuildReport(st.Snapshot())
	if metricsOnly {
		if _, err := fmt.Fprintln(w, report.MetricsLine()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return stats.RenderReport(w, report)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPrint, "print", false, "print curves and distribution instead of opening the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig(historySince, historyLast, historyCurveWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPrint {
		return printHistory(cmd.Context(), st, cfg, cmd.OutOrStdout())
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

// printHistory writes totals, progress curves and the aggregated
// distribution of the filtered sessions.
func printHistory(ctx context.Context, st *store.Store, cfg model.HistoryConfig, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	summaries, err := st.ListSummaries(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}

	total, accurate, perfect := 0, 0, 0
	ids := make([]int64, len(summaries))
	for i, s := range summaries {
		total += s.Total
		accurate += s.Accurate
		perfect += s.Perfect
		ids[i] = s.ID
	}
	accRate, perfRate := 0.0, 0.0
	if total > 0 {
		accRate = float64(accurate) * 100 / float64(total)
		perfRate = float64(perfect) * 100 / float64(total)
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d  Strafes: %d  Accurate: %s%%  Perfect: %s%%\n",
		len(summaries), total, stats.FormatOverallRate(accRate), stats.FormatOverallRate(perfRate)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(w, summaries, cfg.CurveWindow); err != nil {
		return err
	}

	cells, err := st.AggregateBuckets(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load distribution: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return stats.RenderHistogram(w, stats.HistogramReport(cells), 40)
}

func historyConfig(since string, last, window int) (model.HistoryConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return model.HistoryConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	return model.HistoryConfig{Since: sinceTime, Last: last, CurveWindow: window}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# strafeval configuration
# Uncomment a value to enable it. Environment variables override the file
# and CLI flags override both.

[session]
# require-shot = false        # Drop strafes without a shot in the window
# shot-window-ms = %d        # Shot window in ms
# history = true              # Save session summaries on exit

[feed]
# source = %q                # ws, stdin, file or demo (env %s)
# listen = %q   # Websocket listen address (env %s)
# file = ""                   # JSON-lines file for source "file"
# demo-interval-ms = %d     # Pause between demo strafes

[log]
# level = %q               # debug, info, warn or error (env %s)
# file = ""                   # Log file (default %s)
`,
		defaultShotWindowMs,
		defaultSource,
		config.EnvSource,
		feed.DefaultListen,
		config.EnvListen,
		defaultDemoIntervalMs,
		defaultLogLevel,
		config.EnvLogLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	switch cfg.Source {
	case sourceWS:
		if strings.TrimSpace(cfg.Listen) == "" {
			return fmt.Errorf("--listen must not be empty")
		}
	case sourceFile:
		if strings.TrimSpace(cfg.File) == "" {
			return fmt.Errorf("--file is required for source %q", sourceFile)
		}
	case sourceDemo:
		if cfg.DemoInterval <= 0 {
			return fmt.Errorf("--demo-interval must be > 0")
		}
	case sourceStdin:
	default:
		return fmt.Errorf("unknown --source %q (want ws, stdin, file or demo)", cfg.Source)
	}
	if cfg.ShotWindow <= 0 {
		return fmt.Errorf("--shot-window must be > 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
