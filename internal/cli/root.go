// Package cli wires the stint commands: session control, logs, reports,
// editing and export over a Watson data directory.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/config"
	"github.com/sadopc/stint/internal/report"
	"github.com/sadopc/stint/internal/store"
)

// App carries what every command needs. Out, Err, In and Now are set by
// Execute and replaced in tests.
type App struct {
	ConfigPath string
	LogLevel   string

	Out io.Writer
	Err io.Writer
	In  io.Reader
	Now func() time.Time

	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	store  *store.Store
	engine *report.Engine
}

// Execute runs the command line and returns the process exit status.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin, Now: time.Now}
	root := NewRootCommand(app)
	root.Version = version
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), describeError(err))
		return 1
	}
	return 0
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "stint",
		Short: "Track time in Watson-compatible frame files",
		Long: `stint records what you work on as frames: a project, optional tags, and a
start and stop time. It reads and writes the same files as Watson, so both
tools can share one data directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.SetIn(app.In)

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "config file (default $STINT_CONFIG or <user config dir>/stint/config.yaml)")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newStartCommand(app),
		newStopCommand(app),
		newCancelCommand(app),
		newStatusCommand(app),
		newRestartCommand(app),
		newLogCommand(app),
		newReportCommand(app),
		newProjectsCommand(app),
		newTagsCommand(app),
		newFramesCommand(app),
		newEditCommand(app),
		newRemoveCommand(app),
		newExportCommand(app),
		newDashboardCommand(app),
	)
	return root
}

func (a *App) setup() error {
	path := a.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: level}))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("locate data directory: %w", err)
	}

	s, err := store.Open(dir,
		store.WithLocation(loc),
		store.WithClock(a.Now),
		store.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.logger.Debug("store opened", "dir", dir, "timezone", loc.String())

	a.cfg = cfg
	a.loc = loc
	a.store = s
	a.engine = report.NewEngine(s, loc, a.Now)
	return nil
}

// now is the current time in the configured zone, to the second.
func (a *App) now() time.Time {
	return a.store.Now()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}
