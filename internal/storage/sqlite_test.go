package storage

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addProgress(t *testing.T, s *Store, studentID, topic string, score int) ProgressRecord {
	t.Helper()
	p, err := s.AddProgress(context.Background(), ProgressRecord{
		StudentID:    studentID,
		Topic:        topic,
		Score:        score,
		Attempts:     2,
		TimeSpentMin: 30,
	})
	if err != nil {
		t.Fatalf("adding progress: %v", err)
	}
	return p
}

func TestAddProgress_AssignsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)

	p := addProgress(t, s, "default", "algebra", 70)
	if p.ID == "" {
		t.Error("expected assigned ID")
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected assigned timestamp")
	}
}

func TestRecentProgress_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, topic := range []string{"algebra", "geometry", "calculus"} {
		addProgress(t, s, "default", topic, 50+i)
		time.Sleep(2 * time.Millisecond) // distinct created_at
	}
	addProgress(t, s, "other", "chemistry", 90)

	got, err := s.RecentProgress(ctx, "default", 2)
	if err != nil {
		t.Fatalf("RecentProgress: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Topic != "calculus" || got[1].Topic != "geometry" {
		t.Errorf("expected most-recent-first [calculus geometry], got [%s %s]", got[0].Topic, got[1].Topic)
	}
}

func TestRecentProgress_EmptyForUnknownStudent(t *testing.T) {
	s := openTestStore(t)

	got, err := s.RecentProgress(context.Background(), "nobody", 50)
	if err != nil {
		t.Fatalf("RecentProgress: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestInsertTaskBatch_ReturnsStoredRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	drafts := []TaskDraft{
		{Title: "Review algebra basics", DurationMin: 30, Type: TaskTypeRevision},
		{Title: "Practice word problems", DurationMin: 40, Type: TaskTypePractice},
	}
	tasks, err := s.InsertTaskBatch(ctx, "default", drafts)
	if err != nil {
		t.Fatalf("InsertTaskBatch: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.ID == "" {
			t.Errorf("task %d: missing ID", i)
		}
		if task.CreatedAt.IsZero() {
			t.Errorf("task %d: missing timestamp", i)
		}
		if task.Completed {
			t.Errorf("task %d: new task must not be completed", i)
		}
	}

	stored, err := s.RecentTasks(ctx, "default", 10)
	if err != nil {
		t.Fatalf("RecentTasks: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 stored tasks, got %d", len(stored))
	}
}

func TestInsertTaskBatch_AtomicOnViolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Second draft violates the duration CHECK constraint; the whole
	// batch must roll back.
	drafts := []TaskDraft{
		{Title: "Valid task", DurationMin: 30, Type: TaskTypeStudy},
		{Title: "Marathon", DurationMin: 500, Type: TaskTypeStudy},
	}
	if _, err := s.InsertTaskBatch(ctx, "default", drafts); err == nil {
		t.Fatal("expected constraint violation error")
	}

	stored, err := s.RecentTasks(ctx, "default", 10)
	if err != nil {
		t.Fatalf("RecentTasks: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected no rows after failed batch, got %d", len(stored))
	}
}

func TestInsertTaskBatch_RejectsUnknownType(t *testing.T) {
	s := openTestStore(t)

	drafts := []TaskDraft{{Title: "Cram session", DurationMin: 30, Type: "cram"}}
	if _, err := s.InsertTaskBatch(context.Background(), "default", drafts); err == nil {
		t.Fatal("expected type CHECK violation")
	}
}

func TestSetTaskCompleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tasks, err := s.InsertTaskBatch(ctx, "default", []TaskDraft{
		{Title: "Read chapter 3", DurationMin: 25, Type: TaskTypeStudy},
	})
	if err != nil {
		t.Fatalf("InsertTaskBatch: %v", err)
	}

	if err := s.SetTaskCompleted(ctx, "default", tasks[0].ID, true); err != nil {
		t.Fatalf("SetTaskCompleted: %v", err)
	}

	got, err := s.GetTask(ctx, "default", tasks[0].ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !got.Completed {
		t.Error("expected task to be completed")
	}
}

func TestSetTaskCompleted_NotFound(t *testing.T) {
	s := openTestStore(t)

	err := s.SetTaskCompleted(context.Background(), "default", "missing-id", true)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetTask(context.Background(), "default", "missing-id"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidTaskType(t *testing.T) {
	for _, valid := range []string{"study", "revision", "practice"} {
		if !ValidTaskType(valid) {
			t.Errorf("ValidTaskType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "Study", "cram", "STUDY", "practise"} {
		if ValidTaskType(invalid) {
			t.Errorf("ValidTaskType(%q) = true, want false", invalid)
		}
	}
}
