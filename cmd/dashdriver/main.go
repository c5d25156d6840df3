package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/dashdriver/internal/config"
	"github.com/v0xg/dashdriver/internal/dashboard"
	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/driver/pwdriver"
	"github.com/v0xg/dashdriver/internal/driver/roddriver"
	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/recorder"
	"github.com/v0xg/dashdriver/internal/scenario"
)

var (
	configPath string
	backend    string
	timeout    time.Duration
	poll       time.Duration
	record     string
	fps        int
	strict     bool
	verbose    bool
	headful    bool
	stealth    bool
	profile    string
	bin        string
	remote     string
	install    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dashdriver",
		Short: "Drive widget dashboards through a browser",
		Long: `dashdriver runs dashboard sessions described in YAML against a live page:
entering edit mode, adding, copying and deleting widgets, saving, and checking
the result.

Example:
  dashdriver run "https://zabbix.example.com/zabbix.php?action=dashboard.view" add-widget.yaml`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&backend, "backend", "", "Browser backend: rod, playwright (default: rod)")
	pf.DurationVar(&timeout, "timeout", 0, "Timeout of every wait (default 20s)")
	pf.DurationVar(&poll, "poll", 0, "Poll interval of every wait (default 100ms)")
	pf.BoolVar(&strict, "strict", false, "Fail on widget names matching more than one widget")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	pf.BoolVar(&headful, "headful", false, "Show the browser window")
	pf.BoolVar(&stealth, "stealth", false, "Apply stealth evasions (rod backend)")
	pf.StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	pf.StringVar(&bin, "bin", "", "Browser executable")
	pf.StringVar(&remote, "remote", "", "Connect to a running browser's DevTools URL")
	pf.BoolVar(&install, "install", false, "Install playwright browsers before starting (playwright backend)")

	runCmd := &cobra.Command{
		Use:   "run <url> <scenario.yaml>",
		Short: "Run a scenario against a dashboard",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	runCmd.Flags().StringVarP(&record, "record", "o", "", "Record checkpoints to this GIF")
	runCmd.Flags().IntVar(&fps, "fps", 0, "Recording frames per second")

	inspectCmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Print the dashboard title, mode and widgets",
		Args:  cobra.ExactArgs(1),
		RunE:  inspect,
	}

	rootCmd.AddCommand(runCmd, inspectCmd)
	return rootCmd
}

// loadConfig layers flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Browser.Backend = backend
	}
	if flags.Changed("timeout") {
		cfg.Wait.Timeout = timeout
	}
	if flags.Changed("poll") {
		cfg.Wait.Interval = poll
	}
	if flags.Changed("strict") {
		cfg.Dashboard.Strict = strict
	}
	if flags.Changed("headful") {
		cfg.Browser.Headless = !headful
	}
	if flags.Changed("stealth") {
		cfg.Browser.Stealth = stealth
	}
	if flags.Changed("profile") {
		cfg.Browser.Profile = profile
	}
	if flags.Changed("bin") {
		cfg.Browser.Bin = bin
	}
	if flags.Changed("remote") {
		cfg.Browser.Remote = remote
	}
	if flags.Lookup("record") != nil && flags.Changed("record") {
		cfg.Record.Output = record
	}
	if flags.Lookup("fps") != nil && flags.Changed("fps") {
		cfg.Record.FPS = fps
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

type browser interface {
	driver.Driver
	driver.Screenshotter
	Close() error
}

func openBrowser(ctx context.Context, cfg *config.Config, url string, log *slog.Logger) (browser, error) {
	b := cfg.Browser
	switch b.Backend {
	case config.BackendPlaywright:
		return pwdriver.Open(ctx, url, pwdriver.Options{
			Bin: b.Bin, Headless: b.Headless, Width: b.Width, Height: b.Height,
			Profile: b.Profile, Remote: b.Remote, Install: install, Logger: log,
		})
	default:
		return roddriver.Open(ctx, url, roddriver.Options{
			Bin: b.Bin, Headless: b.Headless, Stealth: b.Stealth, Width: b.Width, Height: b.Height,
			Profile: b.Profile, Remote: b.Remote, ActionTimeout: cfg.Wait.Timeout, Logger: log,
		})
	}
}

func run(cmd *cobra.Command, args []string) error {
	url := args[0]
	scenarioPath := args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}
	fmt.Printf("→ Loaded %s (%d steps)\n", scenarioName(sc, scenarioPath), len(sc.Steps))
	logSteps(sc.Steps)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("→ Opening %s with %s... ", url, cfg.Browser.Backend)
	br, err := openBrowser(ctx, cfg, url, log)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	defer br.Close()
	fmt.Println("done")

	opts := element.Options{Wait: cfg.WaitOptions(), Strict: cfg.Dashboard.Strict, Logger: log}
	var rec *recorder.Recorder
	if cfg.Record.Output != "" {
		rec = recorder.New(br, recorder.Options{
			FPS: cfg.Record.FPS, MaxWidth: uint(cfg.Record.MaxWidth), Hold: cfg.Record.Hold, Logger: log,
		})
		opts.Snapshotter = rec
	}
	sess := element.NewSession(br, opts)

	fmt.Println("→ Running...")
	runner := scenario.NewRunner(sess)
	runner.OnStep = func(i int, r scenario.StepResult) {
		mark := "✓"
		if r.Err != nil {
			mark = "✗"
		}
		fmt.Printf("  [%d] %s %s (%s)\n", i+1, mark, r.Step, r.Elapsed.Round(time.Millisecond))
	}
	_, runErr := runner.Run(ctx, sc)

	if rec != nil {
		fmt.Printf("→ Generating GIF (%d checkpoints)... ", len(rec.Frames()))
		size, err := rec.Save(cfg.Record.Output)
		if err != nil {
			fmt.Println("failed")
			return err
		}
		fmt.Println("done")
		fmt.Printf("✓ Saved to %s (%.1f KB)\n", cfg.Record.Output, float64(size)/1024)
	}

	if runErr != nil {
		return runErr
	}
	fmt.Printf("✓ Session %s passed\n", sess.ID())
	return nil
}

func inspect(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("→ Opening %s with %s... ", url, cfg.Browser.Backend)
	br, err := openBrowser(ctx, cfg, url, log)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	defer br.Close()
	fmt.Println("done")

	sess := element.NewSession(br, element.Options{Wait: cfg.WaitOptions(), Strict: cfg.Dashboard.Strict, Logger: log})
	dash, err := dashboard.Find(ctx, sess)
	if err != nil {
		return fmt.Errorf("no dashboard on page: %w", err)
	}
	return printDashboard(ctx, dash)
}

func printDashboard(ctx context.Context, dash *dashboard.Dashboard) error {
	title, err := dash.Title(ctx)
	if err != nil {
		return err
	}
	mode, err := dash.Mode(ctx)
	if err != nil {
		return err
	}
	widgets, err := dash.Widgets(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Dashboard: %s\n", title)
	fmt.Printf("Mode:      %s\n", mode)
	fmt.Printf("Widgets:   %d\n", len(widgets))
	for i, w := range widgets {
		name, err := w.Name(ctx)
		if err != nil {
			return err
		}
		state := ""
		if loading, err := w.IsLoading(ctx); err == nil && loading {
			state = " [loading]"
		}
		fmt.Printf("  [%d] %s%s\n", i+1, name, state)
	}
	return nil
}

// logSteps prints the step list
func logSteps(steps []scenario.Step) {
	for i, s := range steps {
		fmt.Printf("  [%d] %s\n", i+1, s)
	}
}

func scenarioName(sc *scenario.Scenario, path string) string {
	if sc.Name != "" {
		return sc.Name
	}
	return path
}
