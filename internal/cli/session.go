package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/report"
	"github.com/sadopc/stint/internal/store"
)

// atTime resolves an --at flag, defaulting to now. Times in the future
// are rejected.
func (a *App) atTime(at string) (time.Time, error) {
	now := a.now()
	if at == "" {
		return now, nil
	}
	t, err := parseFrom(at, now, a.loc)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", store.ErrInvalidInterval, t.Format(stampLayout))
	}
	return t, nil
}

func (a *App) ago(t time.Time) string {
	return humanize.RelTime(t, a.now(), "ago", "from now")
}

func newStartCommand(app *App) *cobra.Command {
	var (
		at    string
		noGap bool
	)
	cmd := &cobra.Command{
		Use:   "start <project> [+tag...]",
		Short: "Start tracking a project",
		Long: `Start tracking a project. Tags follow the project either as +tag words,
where a tag runs until the next +tag, or as plain arguments.

  stint start website +design +client call
  stint start website design`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, tags := parseStartArgs(args)
			start, err := app.atTime(at)
			if err != nil {
				return err
			}
			session, err := app.store.Start(project, tags, start, store.StartOptions{NoGap: noGap})
			if err != nil {
				return err
			}
			app.printf("Starting project %s at %s\n", formatProject(session.Project, session.Tags), formatClock(session.Start))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "start time instead of now (YYYY-MM-DD HH:MM or HH:MM)")
	cmd.Flags().BoolVarP(&noGap, "no-gap", "g", false, "start where the last frame stopped")
	return cmd
}

func newStopCommand(app *App) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running session and record it as a frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stop, err := app.atTime(at)
			if err != nil {
				return err
			}
			f, err := app.store.Stop(stop)
			if err != nil {
				return err
			}
			app.printf("Stopping project %s, started %s. (id: %s)\n",
				formatProject(f.Project, f.Tags), app.ago(f.Start), idStyle.Render(shortID(f.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "stop time instead of now (YYYY-MM-DD HH:MM or HH:MM)")
	return cmd
}

func newCancelCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the running session without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.store.Cancel()
			if err != nil {
				return err
			}
			app.printf("Canceling the timer for project %s\n", formatProject(session.Project, session.Tags))
			return nil
		},
	}
}

func newStatusCommand(app *App) *cobra.Command {
	var (
		onlyProject bool
		onlyTags    bool
		onlyElapsed bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.store.Status(app.now())
			if err != nil {
				return err
			}
			if !view.Running {
				app.printf("No project started.\n")
				return nil
			}
			switch {
			case onlyProject:
				app.printf("%s\n", view.Project)
			case onlyTags:
				app.printf("%s\n", strings.Join(view.Tags, ", "))
			case onlyElapsed:
				app.printf("%s\n", report.FormatDuration(view.Elapsed))
			default:
				app.printf("Project %s started %s (%s)\n",
					formatProject(view.Project, view.Tags), app.ago(view.Start),
					timeStyle.Render(view.Start.Format(stampLayout)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&onlyProject, "project", "p", false, "only print the project")
	cmd.Flags().BoolVarP(&onlyTags, "tags", "t", false, "only print the tags")
	cmd.Flags().BoolVarP(&onlyElapsed, "elapsed", "e", false, "only print the elapsed time")
	cmd.MarkFlagsMutuallyExclusive("project", "tags", "elapsed")
	return cmd
}

func newRestartCommand(app *App) *cobra.Command {
	var (
		at      string
		stopNow bool
	)
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Start the project and tags of the last frame again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := app.atTime(at)
			if err != nil {
				return err
			}
			if stopNow {
				f, err := app.store.Stop(start)
				switch {
				case err == nil:
					app.printf("Stopping project %s, started %s. (id: %s)\n",
						formatProject(f.Project, f.Tags), app.ago(f.Start), idStyle.Render(shortID(f.ID)))
				case !errors.Is(err, store.ErrNotRunning):
					return err
				}
			}

			last, ok, err := app.store.Last()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no frame to restart")
			}
			session, err := app.store.Start(last.Project, last.Tags, start, store.StartOptions{})
			if err != nil {
				return err
			}
			app.printf("Starting project %s at %s\n", formatProject(session.Project, session.Tags), formatClock(session.Start))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "start time instead of now (YYYY-MM-DD HH:MM or HH:MM)")
	cmd.Flags().BoolVarP(&stopNow, "stop", "s", false, "stop the running session first")
	return cmd
}
