package stores

import (
	"context"
	"testing"
	"time"

	"github.com/gravelbuild/gravel/pkg/analysis"
	"github.com/gravelbuild/gravel/pkg/model"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func newTestEvaluation(id string) *Evaluation {
	now := time.Now()
	return &Evaluation{
		ID:        id,
		Status:    EvaluationStatusRunning,
		RootCount: 2,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"evaluations", "node_outcomes", "analysis_events"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestEvaluationLifecycle tests creating, finishing, and listing evaluations
func TestEvaluationLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-001")

	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	retrieved, err := store.GetEvaluation(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to get evaluation: %v", err)
	}
	if retrieved.Status != EvaluationStatusRunning {
		t.Errorf("expected status %s, got %s", EvaluationStatusRunning, retrieved.Status)
	}
	if retrieved.RootCount != 2 {
		t.Errorf("expected root count 2, got %d", retrieved.RootCount)
	}
	if retrieved.CompletedAt != nil {
		t.Error("a running evaluation must not have a completion time")
	}

	stats := EvaluationStats{
		Computed:    10,
		Failed:      1,
		Restarts:    3,
		CacheHits:   4,
		DepRequests: 20,
	}
	if err := store.FinishEvaluation(ctx, eval.ID, EvaluationStatusCompleted, stats, nil); err != nil {
		t.Fatalf("failed to finish evaluation: %v", err)
	}

	finished, err := store.GetEvaluation(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to get finished evaluation: %v", err)
	}
	if finished.Status != EvaluationStatusCompleted {
		t.Errorf("expected status %s, got %s", EvaluationStatusCompleted, finished.Status)
	}
	if finished.CompletedAt == nil {
		t.Error("a finished evaluation must have a completion time")
	}
	if finished.Computed != 10 || finished.Restarts != 3 {
		t.Errorf("counters not persisted: %+v", finished)
	}

	evals, err := store.ListEvaluations(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list evaluations: %v", err)
	}
	if len(evals) != 1 {
		t.Errorf("expected 1 evaluation, got %d", len(evals))
	}
}

// TestFinishEvaluationWithError tests recording a failed evaluation
func TestFinishEvaluationWithError(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-002")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	errMsg := "context canceled"
	if err := store.FinishEvaluation(ctx, eval.ID, EvaluationStatusCancelled, EvaluationStats{}, &errMsg); err != nil {
		t.Fatalf("failed to finish evaluation: %v", err)
	}

	finished, err := store.GetEvaluation(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to get evaluation: %v", err)
	}
	if finished.Error == nil || *finished.Error != errMsg {
		t.Errorf("expected error %q, got %v", errMsg, finished.Error)
	}
}

// TestFinishMissingEvaluation tests updating a nonexistent evaluation
func TestFinishMissingEvaluation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	err := store.FinishEvaluation(context.Background(), "nope", EvaluationStatusCompleted, EvaluationStats{}, nil)
	if err == nil {
		t.Fatal("expected an error for a missing evaluation")
	}
}

// TestNodeOutcomes tests batch recording and querying node outcomes
func TestNodeOutcomes(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-003")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	now := time.Now()
	errClass := "direct"
	errMsg := "//app:bin: no such target '//app:missing'"
	outcomes := []*NodeOutcome{
		{
			EvaluationID: eval.ID,
			Kind:         "configured_target",
			NodeKey:      "configured_target(//app:lib@abcd1234)",
			Status:       NodeStatusOK,
			Restarts:     1,
			RecordedAt:   now,
		},
		{
			EvaluationID: eval.ID,
			Kind:         "configured_target",
			NodeKey:      "configured_target(//app:bin@abcd1234)",
			Status:       NodeStatusFailed,
			ErrorClass:   &errClass,
			ErrorMessage: &errMsg,
			RecordedAt:   now,
		},
		{
			EvaluationID: eval.ID,
			Kind:         "package",
			NodeKey:      "package(app)",
			Status:       NodeStatusOK,
			RecordedAt:   now,
		},
	}

	if err := store.RecordNodeOutcomes(ctx, outcomes); err != nil {
		t.Fatalf("failed to record node outcomes: %v", err)
	}
	for _, outcome := range outcomes {
		if outcome.ID == 0 {
			t.Errorf("expected an assigned ID for %s", outcome.NodeKey)
		}
	}

	all, err := store.ListNodeOutcomes(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to list node outcomes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(all))
	}

	failed, err := store.ListFailedNodes(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to list failed nodes: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed node, got %d", len(failed))
	}
	if failed[0].ErrorClass == nil || *failed[0].ErrorClass != "direct" {
		t.Errorf("expected a direct error class, got %v", failed[0].ErrorClass)
	}

	single, err := store.GetNodeOutcome(ctx, eval.ID, "package(app)")
	if err != nil {
		t.Fatalf("failed to get node outcome: %v", err)
	}
	if single.Kind != "package" || single.Status != NodeStatusOK {
		t.Errorf("unexpected outcome: %+v", single)
	}
}

// TestRecordNodeOutcomesEmpty tests that an empty batch is a no-op
func TestRecordNodeOutcomesEmpty(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.RecordNodeOutcomes(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should succeed: %v", err)
	}
}

// TestDuplicateNodeOutcomeRejected tests the per-evaluation key uniqueness
func TestDuplicateNodeOutcomeRejected(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-004")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	outcome := func() *NodeOutcome {
		return &NodeOutcome{
			EvaluationID: eval.ID,
			Kind:         "package",
			NodeKey:      "package(app)",
			Status:       NodeStatusOK,
			RecordedAt:   time.Now(),
		}
	}

	if err := store.RecordNodeOutcomes(ctx, []*NodeOutcome{outcome()}); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if err := store.RecordNodeOutcomes(ctx, []*NodeOutcome{outcome()}); err == nil {
		t.Fatal("expected a uniqueness violation for the duplicate key")
	}
}

// TestDeleteEvaluationCascades tests that dependent rows go with the run
func TestDeleteEvaluationCascades(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-005")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	outcomes := []*NodeOutcome{{
		EvaluationID: eval.ID,
		Kind:         "package",
		NodeKey:      "package(app)",
		Status:       NodeStatusOK,
		RecordedAt:   time.Now(),
	}}
	if err := store.RecordNodeOutcomes(ctx, outcomes); err != nil {
		t.Fatalf("failed to record node outcomes: %v", err)
	}

	if err := store.DeleteEvaluation(ctx, eval.ID); err != nil {
		t.Fatalf("failed to delete evaluation: %v", err)
	}

	remaining, err := store.ListNodeOutcomes(ctx, eval.ID)
	if err != nil {
		t.Fatalf("failed to list node outcomes: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected cascaded delete, found %d outcomes", len(remaining))
	}
}

// TestAnalysisEvents tests appending and filtering diagnostics
func TestAnalysisEvents(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	eval := newTestEvaluation("eval-006")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	label := "//cond:empty"
	events := []*AnalysisEvent{
		{
			EvaluationID: eval.ID,
			Severity:     EventSeverityError,
			Label:        &label,
			Message:      "config_setting requires a non-empty 'values' attribute",
			Timestamp:    time.Now(),
		},
		{
			EvaluationID: eval.ID,
			Severity:     EventSeverityInfo,
			Message:      "analysis finished",
			Timestamp:    time.Now(),
		},
	}
	for _, event := range events {
		if err := store.AppendAnalysisEvent(ctx, event); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
		if event.ID == 0 {
			t.Error("expected an assigned event ID")
		}
	}

	all, err := store.ListAnalysisEvents(ctx, &eval.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}

	severity := EventSeverityError
	errs, err := store.ListAnalysisEvents(ctx, &eval.ID, &severity, 10, 0)
	if err != nil {
		t.Fatalf("failed to list error events: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errs))
	}
	if errs[0].Label == nil || *errs[0].Label != label {
		t.Errorf("expected label %s, got %v", label, errs[0].Label)
	}
}

// TestAnalysisEventSink tests persisting analysis diagnostics through
// the event sink
func TestAnalysisEventSink(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	eval := newTestEvaluation("eval-sink")
	if err := store.CreateEvaluation(ctx, eval); err != nil {
		t.Fatalf("failed to create evaluation: %v", err)
	}

	sink := NewAnalysisEventSink(store, eval.ID, nil)
	sink.Post(analysis.Event{
		Severity: analysis.SeverityError,
		Label:    model.MustParseLabel("//app:bin"),
		Message:  "analysis failed",
	})
	sink.Post(analysis.Event{
		Severity: analysis.SeverityInfo,
		Message:  "unattributed note",
	})

	events, err := store.ListAnalysisEvents(ctx, &eval.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	var failure *AnalysisEvent
	for _, e := range events {
		if e.Severity == EventSeverityError {
			failure = e
		}
	}
	if failure == nil {
		t.Fatal("expected an error event")
	}
	if failure.Label == nil || *failure.Label != "//app:bin" {
		t.Errorf("error event should name its target, got %v", failure.Label)
	}
	if failure.Message != "analysis failed" {
		t.Errorf("unexpected message: %s", failure.Message)
	}

	for _, e := range events {
		if e.Severity == EventSeverityInfo && e.Label != nil {
			t.Error("unattributed events must store a NULL label")
		}
	}
}
