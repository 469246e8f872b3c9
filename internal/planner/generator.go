package planner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/studyloop/studyloop/internal/gateway"
	"github.com/studyloop/studyloop/internal/storage"
)

// History windows fed into the prompt.
const (
	progressWindow = 50
	taskWindow     = 10
)

// ProgressReader reads a bounded window of progress history.
type ProgressReader interface {
	RecentProgress(ctx context.Context, studentID string, limit int) ([]storage.ProgressRecord, error)
}

// TaskStore reads recent task history and persists generated batches.
type TaskStore interface {
	RecentTasks(ctx context.Context, studentID string, limit int) ([]storage.TaskRecord, error)
	InsertTaskBatch(ctx context.Context, studentID string, drafts []storage.TaskDraft) ([]storage.TaskRecord, error)
}

// Completer sends a completion request to the AI gateway.
type Completer interface {
	Complete(ctx context.Context, req gateway.ChatRequest) (string, error)
}

// Generator runs the study-plan pipeline: history reads → summaries →
// prompt → completion → parse → transactional persistence.
type Generator struct {
	progress ProgressReader
	tasks    TaskStore
	ai       Completer
	model    string
}

// NewGenerator wires a Generator to its collaborators.
func NewGenerator(progress ProgressReader, tasks TaskStore, ai Completer, model string) *Generator {
	return &Generator{
		progress: progress,
		tasks:    tasks,
		ai:       ai,
		model:    model,
	}
}

// Generate produces and persists a fresh study plan for the student.
// History read failures degrade to empty summaries; every other failure
// aborts the pipeline. Nothing is persisted for a cancelled request.
func (g *Generator) Generate(ctx context.Context, studentID string) ([]storage.TaskRecord, error) {
	var (
		progress []storage.ProgressRecord
		history  []storage.TaskRecord
	)

	// The two history reads are independent; run them concurrently.
	// Failures are logged, not returned — a missing history must not
	// block plan generation.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		p, err := g.progress.RecentProgress(egCtx, studentID, progressWindow)
		if err != nil {
			slog.Warn("fetching progress history failed", "student", studentID, "error", err)
			return nil
		}
		progress = p
		return nil
	})
	eg.Go(func() error {
		ts, err := g.tasks.RecentTasks(egCtx, studentID, taskWindow)
		if err != nil {
			slog.Warn("fetching task history failed", "student", studentID, "error", err)
			return nil
		}
		history = ts
		return nil
	})
	eg.Wait()

	req := BuildPlanRequest(g.model, SummarizeProgress(progress), SummarizeTasks(history))

	raw, err := g.ai.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("requesting completion: %w", err)
	}

	drafts, err := ParsePlan(raw)
	if err != nil {
		// The raw reply stays server-side; callers only see a generic failure.
		slog.Error("unusable plan from model", "student", studentID, "response", raw)
		return nil, err
	}

	// A cancelled request must never persist a batch.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tasks, err := g.tasks.InsertTaskBatch(ctx, studentID, drafts)
	if err != nil {
		return nil, fmt.Errorf("persisting plan: %w", err)
	}

	slog.Info("study plan generated", "student", studentID, "tasks", len(tasks))
	return tasks, nil
}
