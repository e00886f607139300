package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sadopc/stint/internal/report"
)

func ToCSV(entries []report.Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	// Header
	if err := w.Write([]string{"ID", "Project", "Tags", "Start", "Stop", "Duration (s)", "Duration"}); err != nil {
		return err
	}

	for _, e := range entries {
		secs := int64(e.Duration() / time.Second)
		row := []string{
			e.ID,
			e.Project,
			strings.Join(e.Tags, ", "),
			e.Start.Format(time.RFC3339),
			stopString(e),
			fmt.Sprintf("%d", secs),
			formatDuration(secs),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

// stopString leaves the stop empty for the running session.
func stopString(e report.Entry) string {
	if e.Current {
		return ""
	}
	return e.Stop.Format(time.RFC3339)
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
