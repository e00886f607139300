package cli

import (
	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/report"
)

const rangeLayout = "Mon 02 January 2006"

func newReportCommand(app *App) *cobra.Command {
	var (
		flags  rangeFlags
		weekly bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show time spent per project and tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.resolve(app)
			if err != nil {
				return err
			}
			if weekly {
				return printWeekly(app, r)
			}

			rep, err := app.engine.Report(r)
			if err != nil {
				return err
			}
			if !r.From.IsZero() {
				app.printf("%s -> %s\n\n", r.From.Format(rangeLayout), r.To.Format(rangeLayout))
			}
			printProjects(app, rep.Projects)
			app.printf("%s %s\n", headingStyle.Render("Total:"), durationStyle.Render(report.FormatDuration(rep.Total)))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&weekly, "weekly", "w", false, "split the report into weeks")
	return cmd
}

func printWeekly(app *App, r report.Range) error {
	weekStart, err := app.cfg.Weekday()
	if err != nil {
		return err
	}
	weeks, err := app.engine.Weekly(r, weekStart)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		app.printf("No frames found.\n")
		return nil
	}
	for _, w := range weeks {
		app.printf("%s %s (%s)\n\n", headingStyle.Render("Week of"),
			headingStyle.Render(w.Start.Format(rangeLayout)),
			durationStyle.Render(report.FormatDuration(w.Total)))
		printProjects(app, w.Projects)
	}
	return nil
}

func printProjects(app *App, projects []report.ProjectTotal) {
	for _, p := range projects {
		app.printf("%s - %s\n", projectStyle.Render(p.Project), durationStyle.Render(report.FormatDuration(p.Total)))
		width := 0
		for _, t := range p.Tags {
			width = max(width, len(t.Tag))
		}
		for _, t := range p.Tags {
			app.printf("\t[%s %*s]\n", tagStyle.Render(t.Tag), width-len(t.Tag)+12, report.FormatDuration(t.Total))
		}
		app.printf("\n")
	}
}

func newProjectsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List every project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.engine.Projects()
			if err != nil {
				return err
			}
			for _, p := range projects {
				app.printf("%s\n", p)
			}
			return nil
		},
	}
}

func newTagsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := app.engine.Tags()
			if err != nil {
				return err
			}
			for _, t := range tags {
				app.printf("%s\n", t)
			}
			return nil
		},
	}
}
