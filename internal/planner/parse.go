package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/studyloop/studyloop/internal/storage"
)

// ErrBadPlan is returned when the model's reply is not valid JSON or
// fails schema validation. The whole batch is rejected; no partial
// plan is ever produced.
var ErrBadPlan = errors.New("model returned an unusable plan")

// planItem is the expected shape of one element of the model's JSON
// array. Duration is decoded as json.Number so that only integral JSON
// numbers pass validation.
type planItem struct {
	Title    string      `json:"title"`
	Duration json.Number `json:"duration"`
	Type     string      `json:"type"`
}

// ParsePlan extracts a validated task list from the model's free-text
// reply. A markdown code fence around the JSON array is tolerated;
// anything else that breaks decoding, and any element failing field
// validation, rejects the entire reply with ErrBadPlan.
func ParsePlan(raw string) ([]storage.TaskDraft, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	dec := json.NewDecoder(strings.NewReader(text))
	var items []planItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decoding JSON array: %v", ErrBadPlan, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON array", ErrBadPlan)
	}

	drafts := make([]storage.TaskDraft, 0, len(items))
	for i, item := range items {
		draft, err := validateItem(item)
		if err != nil {
			return nil, fmt.Errorf("%w: task %d: %v", ErrBadPlan, i, err)
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func validateItem(item planItem) (storage.TaskDraft, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return storage.TaskDraft{}, errors.New("missing title")
	}

	if item.Duration == "" {
		return storage.TaskDraft{}, errors.New("missing duration")
	}
	minutes, err := item.Duration.Int64()
	if err != nil {
		return storage.TaskDraft{}, fmt.Errorf("duration %q is not an integer", item.Duration)
	}
	if minutes < storage.MinTaskMinutes || minutes > storage.MaxTaskMinutes {
		return storage.TaskDraft{}, fmt.Errorf("duration %d out of range [%d,%d]", minutes, storage.MinTaskMinutes, storage.MaxTaskMinutes)
	}

	if !storage.ValidTaskType(item.Type) {
		return storage.TaskDraft{}, fmt.Errorf("invalid type %q", item.Type)
	}

	return storage.TaskDraft{
		Title:       title,
		DurationMin: int(minutes),
		Type:        item.Type,
		Completed:   false,
	}, nil
}

// stripCodeFence removes a markdown code fence wrapping the reply,
// with or without a language tag on the opening fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 && isLanguageTag(strings.TrimSpace(body[:i])) {
		body = body[i+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// isLanguageTag reports whether the first fence line looks like a
// language tag ("json", "javascript", ...) rather than content.
func isLanguageTag(s string) bool {
	if len(s) > 20 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
