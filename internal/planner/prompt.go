package planner

import (
	"fmt"

	"github.com/studyloop/studyloop/internal/gateway"
)

const planTemperature = 0.7

const systemPrompt = `You are an AI study planner for students. Create personalized study plans based on their progress and learning patterns. Generate 5 focused study tasks that are balanced between study, revision, and practice. Each task should be 25-45 minutes.`

// The output contract below is advisory only; the model is a free-text
// generator and ParsePlan revalidates everything it returns.
const userPromptTemplate = `Generate a personalized study plan for today based on this student data:

RECENT PROGRESS:
%s

RECENT TASKS:
%s

Create 5 new tasks focusing on:
1. Topics with lower scores (need more practice)
2. Balancing study, revision, and practice
3. Optimal learning duration (25-45 min per task)
4. Building on completed work

Return ONLY a JSON array in this exact format (no markdown, no explanation):
[
  {"title": "Task name", "duration": 30, "type": "study"},
  {"title": "Task name", "duration": 40, "type": "revision"},
  ...
]

Types must be exactly: "study", "revision", or "practice"`

// BuildPlanRequest composes the fixed instruction template and the two
// history summaries into a completion request.
func BuildPlanRequest(model, progressSummary, taskSummary string) gateway.ChatRequest {
	return gateway.ChatRequest{
		Model: model,
		Messages: []gateway.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, progressSummary, taskSummary)},
		},
		Temperature: planTemperature,
	}
}
