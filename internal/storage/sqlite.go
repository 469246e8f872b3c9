package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for progress records and tasks.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "studyloop.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Progress ---

// AddProgress inserts a progress observation and returns the stored row
// with its assigned ID and timestamp.
func (s *Store) AddProgress(ctx context.Context, p ProgressRecord) (ProgressRecord, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, student_id, topic, score, attempts, time_spent_min, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.Topic, p.Score, p.Attempts, p.TimeSpentMin,
		p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return ProgressRecord{}, err
	}
	return p, nil
}

// RecentProgress returns up to limit progress records for the student,
// most recent first.
func (s *Store) RecentProgress(ctx context.Context, studentID string, limit int) ([]ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, topic, score, attempts, time_spent_min, created_at
		FROM progress WHERE student_id = ?
		ORDER BY created_at DESC LIMIT ?`, studentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProgressRecord
	for rows.Next() {
		var p ProgressRecord
		var createdAt string
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Topic, &p.Score, &p.Attempts, &p.TimeSpentMin, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		p.CreatedAt = t
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Tasks ---

// RecentTasks returns up to limit tasks for the student, most recent first.
func (s *Store) RecentTasks(ctx context.Context, studentID string, limit int) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, title, duration_min, type, completed, created_at
		FROM tasks WHERE student_id = ?
		ORDER BY created_at DESC, id LIMIT ?`, studentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TaskRecord
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// InsertTaskBatch writes all drafts as new task rows in a single
// transaction and returns the stored rows in insertion order. If any
// insert fails the transaction is rolled back and no row survives.
func (s *Store) InsertTaskBatch(ctx context.Context, studentID string, drafts []TaskDraft) ([]TaskRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	tasks := make([]TaskRecord, 0, len(drafts))
	for _, d := range drafts {
		t := TaskRecord{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			Title:       d.Title,
			DurationMin: d.DurationMin,
			Type:        d.Type,
			Completed:   d.Completed,
			CreatedAt:   now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, student_id, title, duration_min, type, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.StudentID, t.Title, t.DurationMin, t.Type, boolToInt(t.Completed),
			t.CreatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return nil, fmt.Errorf("inserting task %q: %w", t.Title, err)
		}
		tasks = append(tasks, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch insert: %w", err)
	}
	return tasks, nil
}

// SetTaskCompleted toggles the completed flag on a task.
func (s *Store) SetTaskCompleted(ctx context.Context, studentID, taskID string, completed bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ? WHERE id = ? AND student_id = ?`,
		boolToInt(completed), taskID, studentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTask returns a single task by ID.
func (s *Store) GetTask(ctx context.Context, studentID, taskID string) (TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, title, duration_min, type, completed, created_at
		FROM tasks WHERE id = ? AND student_id = ?`, taskID, studentID,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return TaskRecord{}, ErrNotFound
	}
	if err != nil {
		return TaskRecord{}, err
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (TaskRecord, error) {
	var t TaskRecord
	var completed int
	var createdAt string
	if err := row.Scan(&t.ID, &t.StudentID, &t.Title, &t.DurationMin, &t.Type, &completed, &createdAt); err != nil {
		return TaskRecord{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return TaskRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	t.CreatedAt = parsed
	t.Completed = completed != 0
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
