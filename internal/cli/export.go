package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/stint/internal/export"
	"github.com/sadopc/stint/internal/report"
)

var exporters = map[string]func(entries []report.Entry, path string, now time.Time) error{
	"csv": func(entries []report.Entry, path string, _ time.Time) error {
		return export.ToCSV(entries, path)
	},
	"json": export.ToJSON,
	"sqlite": func(entries []report.Entry, path string, _ time.Time) error {
		return export.ToSQLite(entries, path)
	},
}

var exportExtensions = map[string]string{"csv": ".csv", "json": ".json", "sqlite": ".db"}

func newExportCommand(app *App) *cobra.Command {
	var (
		flags  rangeFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write frames to a CSV, JSON or SQLite file",
		Long: `Write frames to a CSV, JSON or SQLite file. Every frame is exported
unless --from is given. Exporting to an existing SQLite file updates it in
place, so the same database can be refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			write, ok := exporters[format]
			if !ok {
				return fmt.Errorf("unknown export format %q: use csv, json or sqlite", format)
			}
			r, err := flags.resolve(app)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("from") {
				r.From = time.Time{}
			}
			if output == "" {
				output = "stint-export" + exportExtensions[format]
			}

			entries, err := app.engine.Entries(r)
			if err != nil {
				return err
			}
			if err := write(entries, output, app.now()); err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			app.logger.Info("export written", "format", format, "path", output, "frames", len(entries))
			app.printf("Exported %d frames to %s\n", len(entries), output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "F", "csv", "csv, json or sqlite")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stint-export.<ext>)")
	return cmd
}
