package summary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kettleby/rtmstap/recorder"
)

// Generator fills the prompt template with a meeting's transcript and event
// log and writes the resulting summary document.
type Generator struct {
	Prompts       *PromptStore
	Client        *Client
	RecordingsDir string
	SummaryDir    string
}

// Generate produces and persists the summary for one meeting, returning the
// output path.
func (g *Generator) Generate(ctx context.Context, meetingUUID string) (string, error) {
	template := g.Prompts.Template()
	if template == "" {
		return "", fmt.Errorf("summary prompt template is empty")
	}

	meetingDir := recorder.MeetingDir(g.RecordingsDir, meetingUUID)
	transcriptVTT := readIfExists(filepath.Join(meetingDir, "transcript.vtt"))
	eventsLog := readIfExists(filepath.Join(meetingDir, "events.log"))

	today := time.Now().UTC().Format("2006-01-02")
	filled := strings.NewReplacer(
		"{{raw_transcript}}", transcriptVTT,
		"{{meeting_events}}", eventsLog,
		"{{meeting_uuid}}", meetingUUID,
		"{{TODAYDATE}}", today,
	).Replace(template)

	summaryText, err := g.Client.Chat(ctx, filled)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	if err := os.MkdirAll(g.SummaryDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}
	outPath := filepath.Join(g.SummaryDir, recorder.SanitizeName(meetingUUID)+".md")
	if err := os.WriteFile(outPath, []byte(summaryText), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	slog.Info("Summary generated", "meetingUUID", meetingUUID, "path", outPath)
	return outPath, nil
}

func readIfExists(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
