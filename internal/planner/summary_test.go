package planner

import (
	"strings"
	"testing"

	"github.com/studyloop/studyloop/internal/storage"
)

func TestSummarizeProgress_Empty(t *testing.T) {
	got := SummarizeProgress(nil)
	if got != "No progress data available yet" {
		t.Errorf("empty progress summary = %q", got)
	}
	if got == "" {
		t.Error("summary must never be empty")
	}
}

func TestSummarizeProgress_LineFormat(t *testing.T) {
	records := []storage.ProgressRecord{
		{Topic: "algebra", Score: 72, Attempts: 3, TimeSpentMin: 45},
		{Topic: "geometry", Score: 40, Attempts: 1, TimeSpentMin: 20},
	}
	got := SummarizeProgress(records)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "algebra: 72% (3 attempts, 45min)" {
		t.Errorf("line 0 = %q", lines[0])
	}
	// Input order (most recent first) must be preserved.
	if lines[1] != "geometry: 40% (1 attempts, 20min)" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestSummarizeTasks_Empty(t *testing.T) {
	got := SummarizeTasks(nil)
	if got != "No previous tasks" {
		t.Errorf("empty task summary = %q", got)
	}
}

func TestSummarizeTasks_LineFormat(t *testing.T) {
	tasks := []storage.TaskRecord{
		{Title: "Review fractions", Type: storage.TaskTypeRevision, DurationMin: 30, Completed: true},
		{Title: "Practice proofs", Type: storage.TaskTypePractice, DurationMin: 40, Completed: false},
	}
	got := SummarizeTasks(tasks)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "Review fractions (revision, 30min) - completed" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "Practice proofs (practice, 40min) - pending" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestBuildPlanRequest(t *testing.T) {
	req := BuildPlanRequest("google/gemini-2.5-flash", "No progress data available yet", "No previous tasks")

	if req.Model != "google/gemini-2.5-flash" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q", req.Messages[0].Role, req.Messages[1].Role)
	}
	user := req.Messages[1].Content
	for _, want := range []string{
		"RECENT PROGRESS:\nNo progress data available yet",
		"RECENT TASKS:\nNo previous tasks",
		`"study", "revision", or "practice"`,
		"Return ONLY a JSON array",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}
