package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aistack/stackup/pkg/pipeline"
)

func testStore(t *testing.T) *RunStore {
	t.Helper()

	store, err := NewRunStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(id string, status pipeline.RunStatus) *pipeline.Report {
	started := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return &pipeline.Report{
		RunID:       id,
		Status:      status,
		StartedAt:   started,
		CompletedAt: started.Add(90 * time.Second),
		Duration:    90 * time.Second,
		Warnings:    []string{"secret postgres_password using fallback value"},
		Steps: []pipeline.StepResult{
			{Name: "baseline-packages", Outcome: pipeline.OutcomeSkipped, Policy: pipeline.PolicyFatal},
			{Name: "swapfile", Outcome: pipeline.OutcomeSucceeded, Policy: pipeline.PolicyBestEffort, Duration: 3 * time.Second},
			{Name: "service-launch", Outcome: pipeline.OutcomeFailed, Policy: pipeline.PolicyBestEffort, Error: "phase schema-bootstrap: boom"},
		},
	}
}

func TestRunStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveReport(ctx, sampleReport("run-1", pipeline.RunStatusPartial)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || run.Status != pipeline.RunStatusPartial {
		t.Errorf("run = %+v", run)
	}
	if run.CompletedAt == nil {
		t.Error("completed_at lost")
	}
	if run.Duration != 90*time.Second {
		t.Errorf("duration = %v, want 90s", run.Duration)
	}
	if len(run.Warnings) != 1 {
		t.Errorf("warnings = %v", run.Warnings)
	}
}

func TestRunStoreStepsInExecutionOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveReport(ctx, sampleReport("run-1", pipeline.RunStatusPartial)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	steps, err := store.GetSteps(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}

	wantNames := []string{"baseline-packages", "swapfile", "service-launch"}
	for i, want := range wantNames {
		if steps[i].Name != want {
			t.Errorf("step %d = %s, want %s", i, steps[i].Name, want)
		}
	}
	if steps[0].Error != "" {
		t.Errorf("skipped step error = %q, want empty", steps[0].Error)
	}
	if steps[2].Error != "phase schema-bootstrap: boom" {
		t.Errorf("failed step error = %q", steps[2].Error)
	}
	if steps[2].Outcome != pipeline.OutcomeFailed {
		t.Errorf("failed step outcome = %s", steps[2].Outcome)
	}
}

func TestRunStoreListsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := sampleReport("run-1", pipeline.RunStatusSucceeded)
	second := sampleReport("run-2", pipeline.RunStatusSucceeded)
	second.StartedAt = first.StartedAt.Add(time.Hour)

	if err := store.SaveReport(ctx, first); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := store.SaveReport(ctx, second); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("order = %v", []string{runs[0].ID, runs[1].ID})
	}
}

func TestRunStoreLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := sampleReport("x", pipeline.RunStatusSucceeded)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		r := *base
		r.RunID = id
		r.StartedAt = base.StartedAt.Add(time.Duration(i) * time.Minute)
		if err := store.SaveReport(ctx, &r); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestRunStoreInitIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	for i := 0; i < 2; i++ {
		store, err := NewRunStore(path)
		if err != nil {
			t.Fatalf("NewRunStore: %v", err)
		}
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("Init pass %d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestNewRunStoreRequiresPath(t *testing.T) {
	if _, err := NewRunStore(""); err == nil {
		t.Fatal("empty path must be rejected")
	}
}
