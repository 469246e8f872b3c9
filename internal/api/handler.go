package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/studyloop/internal/gateway"
	"github.com/studyloop/studyloop/internal/planner"
	"github.com/studyloop/studyloop/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

const defaultStudentID = "default"

// Planner abstracts plan generation for the HTTP and MCP layers.
type Planner interface {
	Generate(ctx context.Context, studentID string) ([]storage.TaskRecord, error)
}

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Store   *storage.Store
	Planner Planner
	Token   string
}

// NewHandler returns the studyloop REST API. All routes except /health
// require the bearer token; CORS preflight is answered for every route.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/v1/study-plan", handleGeneratePlan(deps))
		r.Get("/v1/tasks", handleListTasks(deps))
		r.Patch("/v1/tasks/{id}", handleUpdateTask(deps))
		r.Get("/v1/progress", handleListProgress(deps))
		r.Post("/v1/progress", handleAddProgress(deps))
	})

	return r
}

// corsMiddleware mirrors the permissive headers the dashboard expects.
// Preflight requests short-circuit before auth; they carry no business
// operation.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Student-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// studentFrom resolves the student identity for a request. The bearer
// token authenticates the caller; X-Student-ID selects a profile on
// shared deployments and defaults to the single local student.
func studentFrom(r *http.Request) string {
	if id := r.Header.Get("X-Student-ID"); id != "" {
		return id
	}
	return defaultStudentID
}

type planResponse struct {
	Success bool                 `json:"success"`
	Tasks   []storage.TaskRecord `json:"tasks"`
	Message string               `json:"message"`
}

func handleGeneratePlan(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := studentFrom(r)

		tasks, err := deps.Planner.Generate(r.Context(), studentID)
		switch {
		case errors.Is(err, gateway.ErrRateLimited):
			slog.Warn("plan generation rate limited", "student", studentID)
			httpError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case errors.Is(err, gateway.ErrQuotaExhausted):
			slog.Warn("plan generation quota exhausted", "student", studentID)
			httpError(w, http.StatusPaymentRequired, "AI credits depleted. Please add credits to continue.")
		case errors.Is(err, planner.ErrBadPlan):
			// Detail (including the raw reply) is already logged server-side.
			httpError(w, http.StatusInternalServerError, "Failed to generate study plan")
		case err != nil:
			slog.Error("plan generation failed", "student", studentID, "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to generate study plan")
		default:
			if tasks == nil {
				tasks = []storage.TaskRecord{}
			}
			writeJSON(w, http.StatusOK, planResponse{
				Success: true,
				Tasks:   tasks,
				Message: "Study plan generated successfully",
			})
		}
	}
}

func handleListTasks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 20, 100)
		tasks, err := deps.Store.RecentTasks(r.Context(), studentFrom(r), limit)
		if err != nil {
			slog.Error("listing tasks failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to list tasks")
			return
		}
		if tasks == nil {
			tasks = []storage.TaskRecord{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func handleUpdateTask(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Completed *bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Completed == nil {
			httpError(w, http.StatusBadRequest, "completed is required")
			return
		}

		studentID := studentFrom(r)
		taskID := chi.URLParam(r, "id")
		if err := deps.Store.SetTaskCompleted(r.Context(), studentID, taskID, *req.Completed); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "task not found")
				return
			}
			slog.Error("updating task failed", "task", taskID, "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to update task")
			return
		}

		task, err := deps.Store.GetTask(r.Context(), studentID, taskID)
		if err != nil {
			slog.Error("reloading task failed", "task", taskID, "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to update task")
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func handleListProgress(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 50, 200)
		records, err := deps.Store.RecentProgress(r.Context(), studentFrom(r), limit)
		if err != nil {
			slog.Error("listing progress failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to list progress")
			return
		}
		if records == nil {
			records = []storage.ProgressRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleAddProgress(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Topic        string `json:"topic"`
			Score        int    `json:"score"`
			Attempts     int    `json:"attempts"`
			TimeSpentMin int    `json:"time_spent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Topic == "" {
			httpError(w, http.StatusBadRequest, "topic is required")
			return
		}
		if req.Score < 0 || req.Score > 100 {
			httpError(w, http.StatusBadRequest, "score must be between 0 and 100")
			return
		}
		if req.Attempts < 0 || req.TimeSpentMin < 0 {
			httpError(w, http.StatusBadRequest, "attempts and time_spent must not be negative")
			return
		}

		record, err := deps.Store.AddProgress(r.Context(), storage.ProgressRecord{
			StudentID:    studentFrom(r),
			Topic:        req.Topic,
			Score:        req.Score,
			Attempts:     req.Attempts,
			TimeSpentMin: req.TimeSpentMin,
		})
		if err != nil {
			slog.Error("recording progress failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to record progress")
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
