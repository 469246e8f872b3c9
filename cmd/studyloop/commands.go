package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyloop/studyloop/internal/config"
)

// --- plan ---

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a fresh AI study plan",
	Long: `Generate a fresh AI study plan.

Aggregates your recent progress and task history, asks the configured
model for a five-task plan, and stores the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/study-plan", nil)
		if err != nil {
			return err
		}

		var result struct {
			Success bool       `json:"success"`
			Tasks   []taskView `json:"tasks"`
			Message string     `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		for _, t := range result.Tasks {
			printTask(t)
		}
		return nil
	},
}

// --- tasks ---

type taskView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	DurationMin int    `json:"duration"`
	Type        string `json:"type"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
}

func printTask(t taskView) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Printf("[%s] %s  %s (%s, %dmin)\n",
		mark,
		colorize(colorCyan, t.ID[:8]),
		t.Title,
		t.Type,
		t.DurationMin,
	)
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recent study tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/tasks?limit=%d", limit))
		if err != nil {
			return err
		}

		var tasks []taskView
		if err := decodeJSON(resp, &tasks); err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks yet. Run \"studyloop plan\" to generate some.")
			return nil
		}
		for _, t := range tasks {
			printTask(t)
		}
		return nil
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/v1/tasks/"+args[0], map[string]bool{"completed": true})
		if err != nil {
			return err
		}

		var task taskView
		if err := decodeJSON(resp, &task); err != nil {
			return err
		}

		printSuccess("Completed: %s", task.Title)
		return nil
	},
}

func init() {
	tasksCmd.Flags().Int("limit", 20, "maximum number of tasks to list")
	tasksCmd.AddCommand(tasksDoneCmd)
}

// --- progress ---

type progressView struct {
	ID           string `json:"id"`
	Topic        string `json:"topic"`
	Score        int    `json:"score"`
	Attempts     int    `json:"attempts"`
	TimeSpentMin int    `json:"time_spent"`
	CreatedAt    string `json:"created_at"`
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "List recent progress records",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/progress?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []progressView
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No progress recorded yet.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %s: %d%% (%d attempts, %dmin)\n",
				colorize(colorCyan, r.ID[:8]),
				r.Topic,
				r.Score,
				r.Attempts,
				r.TimeSpentMin,
			)
		}
		return nil
	},
}

var progressLogCmd = &cobra.Command{
	Use:   "log <topic> <score>",
	Short: "Record a progress observation for a topic",
	Long: `Record a progress observation for a topic.

Examples:
  studyloop progress log algebra 72
  studyloop progress log fractions 85 --attempts 3 --time 45`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		var score int
		if _, err := fmt.Sscanf(args[1], "%d", &score); err != nil {
			return fmt.Errorf("score must be an integer, got %q", args[1])
		}
		attempts, _ := cmd.Flags().GetInt("attempts")
		timeSpent, _ := cmd.Flags().GetInt("time")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"topic":      topic,
			"score":      score,
			"attempts":   attempts,
			"time_spent": timeSpent,
		}
		resp, err := client.post(cmd.Context(), "/v1/progress", body)
		if err != nil {
			return err
		}

		var record progressView
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		printSuccess("Recorded %s: %d%%", record.Topic, record.Score)
		return nil
	},
}

func init() {
	progressCmd.Flags().Int("limit", 20, "maximum number of records to list")
	progressLogCmd.Flags().Int("attempts", 1, "number of attempts")
	progressLogCmd.Flags().Int("time", 0, "minutes spent")
	progressCmd.AddCommand(progressLogCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
