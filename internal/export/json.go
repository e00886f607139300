package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/stint/internal/report"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Total      string      `json:"total"`
	Frames     []jsonFrame `json:"frames"`
}

type jsonFrame struct {
	ID          string   `json:"id"`
	Project     string   `json:"project"`
	Tags        []string `json:"tags"`
	Start       string   `json:"start"`
	Stop        string   `json:"stop,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	DurationSec int64    `json:"duration_seconds"`
	Duration    string   `json:"duration"`
	Running     bool     `json:"running,omitempty"`
}

func ToJSON(entries []report.Entry, path string, exportedAt time.Time) error {
	export := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Count:      len(entries),
	}

	var total int64
	for _, e := range entries {
		secs := int64(e.Duration() / time.Second)
		total += secs

		jf := jsonFrame{
			ID:          e.ID,
			Project:     e.Project,
			Tags:        e.Tags,
			Start:       e.Start.Format(time.RFC3339),
			Stop:        stopString(e),
			DurationSec: secs,
			Duration:    formatDuration(secs),
			Running:     e.Current,
		}
		if jf.Tags == nil {
			jf.Tags = []string{}
		}
		if !e.Current {
			jf.UpdatedAt = e.UpdatedAt.Format(time.RFC3339)
		}
		export.Frames = append(export.Frames, jf)
	}
	export.Total = formatDuration(total)

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
