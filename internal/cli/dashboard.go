package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/tui"
)

func newDashboardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart, err := app.cfg.Weekday()
			if err != nil {
				return err
			}
			p := tea.NewProgram(
				tui.NewApp(app.store, app.engine, weekStart),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(app.In),
				tea.WithOutput(app.Out),
			)
			_, err = p.Run()
			return err
		},
	}
}
