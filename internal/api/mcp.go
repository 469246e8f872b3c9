package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/studyloop/studyloop/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Planner Planner
}

// NewMCPServer creates an MCP server exposing the study planner and
// task store to agent clients over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"studyloop",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("studyloop — personal study dashboard: progress tracking and AI-generated daily study plans."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_study_plan",
			mcp.WithDescription("Generate and persist a fresh AI study plan based on the student's progress and task history."),
			mcp.WithString("student", mcp.Description("Student profile ID (default: the local student)")),
		),
		mcpGeneratePlan(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List the student's most recent study tasks."),
			mcp.WithString("student", mcp.Description("Student profile ID (default: the local student)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 10)")),
		),
		mcpListTasks(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_task",
			mcp.WithDescription("Mark a study task as completed (or pending again)."),
			mcp.WithString("task_id", mcp.Description("ID of the task"), mcp.Required()),
			mcp.WithBoolean("completed", mcp.Description("Completion state to set (default true)")),
			mcp.WithString("student", mcp.Description("Student profile ID (default: the local student)")),
		),
		mcpCompleteTask(deps),
	)

	s.AddTool(
		mcp.NewTool("log_progress",
			mcp.WithDescription("Record a progress observation for a topic (score, attempts, time spent)."),
			mcp.WithString("topic", mcp.Description("Topic the observation is about"), mcp.Required()),
			mcp.WithNumber("score", mcp.Description("Score in percent, 0-100"), mcp.Required()),
			mcp.WithNumber("attempts", mcp.Description("Number of attempts (default 1)")),
			mcp.WithNumber("time_spent", mcp.Description("Minutes spent (default 0)")),
			mcp.WithString("student", mcp.Description("Student profile ID (default: the local student)")),
		),
		mcpLogProgress(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"student://tasks",
			"Recent Tasks",
			mcp.WithResourceDescription("Last 10 study tasks of the local student as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTasks(deps),
	)

	return s
}

func mcpStudent(req mcp.CallToolRequest) string {
	if s := req.GetString("student", ""); s != "" {
		return s
	}
	return defaultStudentID
}

func mcpGeneratePlan(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := deps.Planner.Generate(ctx, mcpStudent(req))
		if err != nil {
			return mcpError(fmt.Sprintf("plan generation failed: %v", err)), nil
		}

		b, err := json.Marshal(tasks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tasks: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTasks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		tasks, err := deps.Store.RecentTasks(ctx, mcpStudent(req), limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing tasks failed: %v", err)), nil
		}
		if len(tasks) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(tasks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tasks: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompleteTask(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := req.RequireString("task_id")
		if err != nil {
			return mcpError("task_id is required"), nil
		}
		completed := req.GetBool("completed", true)

		if err := deps.Store.SetTaskCompleted(ctx, mcpStudent(req), taskID, completed); err != nil {
			if err == storage.ErrNotFound {
				return mcpError(fmt.Sprintf("task %s not found", taskID)), nil
			}
			return mcpError(fmt.Sprintf("failed to update task: %v", err)), nil
		}

		state := "completed"
		if !completed {
			state = "pending"
		}
		return mcpText(fmt.Sprintf("Task %s marked %s", taskID, state)), nil
	}
}

func mcpLogProgress(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		score, err := req.RequireInt("score")
		if err != nil {
			return mcpError("score is required"), nil
		}
		if score < 0 || score > 100 {
			return mcpError("score must be between 0 and 100"), nil
		}
		attempts := req.GetInt("attempts", 1)
		timeSpent := req.GetInt("time_spent", 0)
		if attempts < 0 || timeSpent < 0 {
			return mcpError("attempts and time_spent must not be negative"), nil
		}

		record, err := deps.Store.AddProgress(ctx, storage.ProgressRecord{
			StudentID:    mcpStudent(req),
			Topic:        topic,
			Score:        score,
			Attempts:     attempts,
			TimeSpentMin: timeSpent,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record progress: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Recorded progress %s for topic %q", record.ID, topic)), nil
	}
}

func mcpResourceTasks(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		tasks, err := deps.Store.RecentTasks(ctx, defaultStudentID, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}

		b, err := json.Marshal(tasks)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tasks: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
