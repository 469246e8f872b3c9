package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Task type enumeration. The tasks table enforces the same set with a
// CHECK constraint, so a row outside it can never be written.
const (
	TaskTypeStudy    = "study"
	TaskTypeRevision = "revision"
	TaskTypePractice = "practice"
)

// ValidTaskType reports whether t is one of the closed task types.
// Matching is exact; no case folding.
func ValidTaskType(t string) bool {
	return t == TaskTypeStudy || t == TaskTypeRevision || t == TaskTypePractice
}

// Hard persistence bounds for task duration, in minutes.
const (
	MinTaskMinutes = 1
	MaxTaskMinutes = 180
)

// ProgressRecord is one stored observation of a student's performance
// on a topic. Rows are written once and never mutated.
type ProgressRecord struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"-"`
	Topic        string    `json:"topic"`
	Score        int       `json:"score"` // 0–100
	Attempts     int       `json:"attempts"`
	TimeSpentMin int       `json:"time_spent"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskRecord is a durable, time-boxed study activity.
type TaskRecord struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"-"`
	Title       string    `json:"title"`
	DurationMin int       `json:"duration"`
	Type        string    `json:"type"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskDraft is a validated task candidate that has not been persisted
// yet. The store assigns the ID and timestamp on insert.
type TaskDraft struct {
	Title       string
	DurationMin int
	Type        string
	Completed   bool
}
