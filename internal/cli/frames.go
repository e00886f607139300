package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/editor"
	"github.com/sadopc/stint/internal/frame"
	"github.com/sadopc/stint/internal/report"
	"github.com/sadopc/stint/internal/store"
)

// rangeFlags are the --from/--to/--project/--tag flags shared by log,
// report and export.
type rangeFlags struct {
	from     string
	to       string
	all      bool
	current  bool
	projects []string
	tags     []string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.from, "from", "f", "", "start of the range (YYYY-MM-DD [HH:MM])")
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "end of the range (YYYY-MM-DD [HH:MM])")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "ignore --from and cover every frame")
	cmd.Flags().BoolVarP(&f.current, "current", "c", false, "include the running session")
	cmd.Flags().StringSliceVarP(&f.projects, "project", "p", nil, "only these projects (repeatable)")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "T", nil, "only frames with one of these tags (repeatable)")
}

// resolve turns the flags into a report range. Without --from the range
// starts the configured number of days before now; without --to it ends
// now.
func (f *rangeFlags) resolve(app *App) (report.Range, error) {
	now := app.now()
	r := report.Range{
		From:           now.Add(-app.cfg.LogWindow()),
		To:             now,
		IncludeCurrent: f.current,
		Projects:       f.projects,
		Tags:           parseTagFlags(f.tags),
	}
	if f.all {
		r.From = time.Time{}
	}
	if f.from != "" {
		t, err := parseFrom(f.from, now, app.loc)
		if err != nil {
			return report.Range{}, err
		}
		r.From = t
	}
	if f.to != "" {
		t, err := parseTo(f.to, now, app.loc)
		if err != nil {
			return report.Range{}, err
		}
		r.To = t
	}
	if r.To.Before(r.From) {
		return report.Range{}, fmt.Errorf("%w: --to %s is before --from %s",
			store.ErrInvalidInterval, r.To.Format(stampLayout), r.From.Format(stampLayout))
	}
	return r, nil
}

func newLogCommand(app *App) *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List frames grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.resolve(app)
			if err != nil {
				return err
			}
			log, err := app.engine.Log(r)
			if err != nil {
				return err
			}
			if len(log.Days) == 0 {
				app.printf("No frames found.\n")
				return nil
			}
			for i, day := range log.Days {
				if i > 0 {
					app.printf("\n")
				}
				printDay(app, day)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printDay(app *App, day report.Day) {
	app.printf("%s (%s)\n", headingStyle.Render(day.Date.Format(dayLayout)),
		durationStyle.Render(report.FormatDuration(day.Total)))
	for _, en := range day.Entries {
		stop := formatClock(en.Stop)
		if en.Current {
			stop = timeStyle.Render("now  ")
		}
		app.printf("\t%s  %s to %s  %10s  %s\n",
			idStyle.Render(shortID(en.ID)),
			formatClock(en.Start), stop,
			report.FormatDuration(en.Duration()),
			formatProject(en.Project, en.Tags))
	}
}

func newFramesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "frames",
		Short: "List every frame ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := app.store.Frames()
			if err != nil {
				return err
			}
			for _, f := range frames {
				app.printf("%s\n", shortID(f.ID))
			}
			return nil
		},
	}
}

// resolveFrameRef finds a frame by full ID, unique ID prefix, or a
// negative position counted from the most recent start ("-1" is the
// last frame).
func resolveFrameRef(frames []frame.Frame, ref string) (frame.Frame, error) {
	if strings.HasPrefix(ref, "-") {
		n, err := strconv.Atoi(ref)
		if err != nil || n == 0 {
			return frame.Frame{}, fmt.Errorf("invalid frame position %q", ref)
		}
		if -n > len(frames) {
			return frame.Frame{}, &store.NotFoundError{ID: ref}
		}
		return frames[len(frames)+n], nil
	}

	var match []frame.Frame
	for _, f := range frames {
		if f.ID == ref {
			return f, nil
		}
		if strings.HasPrefix(f.ID, ref) {
			match = append(match, f)
		}
	}
	switch len(match) {
	case 0:
		return frame.Frame{}, &store.NotFoundError{ID: ref}
	case 1:
		return match[0], nil
	default:
		return frame.Frame{}, fmt.Errorf("frame id %q is ambiguous: %d frames match", ref, len(match))
	}
}

// lastFrame is the frame that stopped most recently.
func lastFrame(frames []frame.Frame) (frame.Frame, bool) {
	var (
		last frame.Frame
		ok   bool
	)
	for _, f := range frames {
		if !ok || f.Stop.After(last.Stop) {
			last, ok = f, true
		}
	}
	return last, ok
}

func newEditCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit a frame or the running session in your editor",
		Long: `Open a frame in $VISUAL, $EDITOR, the configured editor or vi.

Without an argument the running session is opened, or the last frame when
nothing is running. The argument is a frame ID, a unique ID prefix, or a
position such as -1 for the last frame (write "stint edit -- -2" so the
position is not read as a flag).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.store.Load()
			if err != nil {
				return err
			}

			var sel editor.Selection
			switch {
			case len(args) == 1:
				f, err := resolveFrameRef(snap.Frames, args[0])
				if err != nil {
					return err
				}
				sel.IDs = []string{f.ID}
			case snap.Session != nil:
				sel.Current = true
			default:
				f, ok := lastFrame(snap.Frames)
				if !ok {
					return errors.New("no frame to edit")
				}
				sel.IDs = []string{f.ID}
			}

			ed := &editor.Editor{
				Store:   app.store,
				Command: editor.ResolveEditorCommand(app.cfg.Editor, os.Getenv),
				Stdin:   app.In,
				Stdout:  app.Out,
				Stderr:  app.Err,
				Logger:  app.logger,
			}
			res, err := ed.Run(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if !res.Changed() {
				app.printf("No changes made.\n")
				return nil
			}
			if res.SessionUpdated {
				app.printf("Updated the running session.\n")
			}
			if n := res.Appended + res.Updated + res.Deleted; n > 0 {
				app.printf("Edited frames: %d added, %d updated, %d removed.\n",
					res.Appended, res.Updated, res.Deleted)
			}
			return nil
		},
	}
}

func newRemoveCommand(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := app.store.Frames()
			if err != nil {
				return err
			}
			f, err := resolveFrameRef(frames, args[0])
			if err != nil {
				return err
			}
			if !force {
				app.printf("You are about to remove frame %s %s from %s to %s, continue? [y/N] ",
					idStyle.Render(shortID(f.ID)), formatProject(f.Project, f.Tags),
					f.Start.Format(stampLayout), f.Stop.Format(stampLayout))
				if !confirm(app) {
					app.printf("Aborted.\n")
					return nil
				}
			}
			if err := app.store.Delete(f.ID); err != nil {
				return err
			}
			app.printf("Frame removed.\n")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func confirm(app *App) bool {
	line, err := bufio.NewReader(app.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
