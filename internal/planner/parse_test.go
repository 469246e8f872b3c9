package planner

import (
	"errors"
	"testing"

	"github.com/studyloop/studyloop/internal/storage"
)

const validPlanJSON = `[
  {"title": "Review algebra basics", "duration": 30, "type": "revision"},
  {"title": "Practice geometry proofs", "duration": 40, "type": "practice"},
  {"title": "Study trigonometry", "duration": 35, "type": "study"}
]`

func TestParsePlan_PlainArray(t *testing.T) {
	drafts, err := ParsePlan(validPlanJSON)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	want := storage.TaskDraft{Title: "Review algebra basics", DurationMin: 30, Type: "revision", Completed: false}
	if drafts[0] != want {
		t.Errorf("draft 0 = %+v, want %+v", drafts[0], want)
	}
	for i, d := range drafts {
		if d.Completed {
			t.Errorf("draft %d: Completed must be false", i)
		}
	}
}

func TestParsePlan_FencedWithLanguageTag(t *testing.T) {
	fenced := "```json\n" + validPlanJSON + "\n```"
	drafts, err := ParsePlan(fenced)
	if err != nil {
		t.Fatalf("ParsePlan(fenced): %v", err)
	}

	plain, err := ParsePlan(validPlanJSON)
	if err != nil {
		t.Fatalf("ParsePlan(plain): %v", err)
	}
	if len(drafts) != len(plain) {
		t.Fatalf("fenced result differs: %d vs %d drafts", len(drafts), len(plain))
	}
	for i := range drafts {
		if drafts[i] != plain[i] {
			t.Errorf("draft %d differs: %+v vs %+v", i, drafts[i], plain[i])
		}
	}
}

func TestParsePlan_FencedWithoutLanguageTag(t *testing.T) {
	fenced := "```\n" + validPlanJSON + "\n```"
	drafts, err := ParsePlan(fenced)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(drafts) != 3 {
		t.Errorf("expected 3 drafts, got %d", len(drafts))
	}
}

func TestParsePlan_Rejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not JSON", "I suggest you study more algebra."},
		{"prose prefix", `Here is your plan: [{"title":"X","duration":30,"type":"study"}]`},
		{"trailing prose", `[{"title":"X","duration":30,"type":"study"}] Enjoy!`},
		{"object not array", `{"title":"X","duration":30,"type":"study"}`},
		{"missing title", `[{"duration":30,"type":"study"}]`},
		{"blank title", `[{"title":"  ","duration":30,"type":"study"}]`},
		{"missing duration", `[{"title":"X","type":"study"}]`},
		{"duration zero", `[{"title":"X","duration":0,"type":"study"}]`},
		{"duration too long", `[{"title":"X","duration":500,"type":"study"}]`},
		{"duration fractional", `[{"title":"X","duration":30.5,"type":"study"}]`},
		{"duration as string", `[{"title":"X","duration":"30","type":"study"}]`},
		{"missing type", `[{"title":"X","duration":30}]`},
		{"type outside enum", "```json\n[{\"title\":\"X\",\"duration\":30,\"type\":\"cram\"}]\n```"},
		{"type wrong case", `[{"title":"X","duration":30,"type":"Study"}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drafts, err := ParsePlan(tc.raw)
			if !errors.Is(err, ErrBadPlan) {
				t.Fatalf("expected ErrBadPlan, got %v", err)
			}
			if len(drafts) != 0 {
				t.Errorf("expected zero drafts on failure, got %d", len(drafts))
			}
		})
	}
}

func TestParsePlan_OneBadElementFailsBatch(t *testing.T) {
	raw := `[
  {"title": "Fine task", "duration": 30, "type": "study"},
  {"title": "Bad task", "duration": 30, "type": "cram"}
]`
	drafts, err := ParsePlan(raw)
	if !errors.Is(err, ErrBadPlan) {
		t.Fatalf("expected ErrBadPlan, got %v", err)
	}
	if drafts != nil {
		t.Errorf("expected nil drafts, got %v", drafts)
	}
}

func TestParsePlan_AdvisoryRangeNotEnforced(t *testing.T) {
	// The prompt asks for 25–45 minutes but only [1,180] is enforced.
	drafts, err := ParsePlan(`[{"title":"Quick drill","duration":10,"type":"practice"}]`)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if drafts[0].DurationMin != 10 {
		t.Errorf("duration = %d, want 10", drafts[0].DurationMin)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"[1]", "[1]"},
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"```javascript\n[1]\n```", "[1]"},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
