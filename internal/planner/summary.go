package planner

import (
	"fmt"
	"strings"

	"github.com/studyloop/studyloop/internal/storage"
)

// Sentinels keep prompt sections non-empty when a student has no history.
const (
	noProgressSentinel = "No progress data available yet"
	noTasksSentinel    = "No previous tasks"
)

// SummarizeProgress renders progress records as one line per record,
// preserving input order (most recent first). It never returns an
// empty string.
func SummarizeProgress(records []storage.ProgressRecord) string {
	if len(records) == 0 {
		return noProgressSentinel
	}
	lines := make([]string, len(records))
	for i, p := range records {
		lines[i] = fmt.Sprintf("%s: %d%% (%d attempts, %dmin)", p.Topic, p.Score, p.Attempts, p.TimeSpentMin)
	}
	return strings.Join(lines, "\n")
}

// SummarizeTasks renders task history as one line per task, preserving
// input order. It never returns an empty string.
func SummarizeTasks(tasks []storage.TaskRecord) string {
	if len(tasks) == 0 {
		return noTasksSentinel
	}
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		status := "pending"
		if t.Completed {
			status = "completed"
		}
		lines[i] = fmt.Sprintf("%s (%s, %dmin) - %s", t.Title, t.Type, t.DurationMin, status)
	}
	return strings.Join(lines, "\n")
}
