package stores

import (
	"context"
	"database/sql"
	"time"
)

// EvaluationStatus represents the status of an evaluation run
type EvaluationStatus string

const (
	EvaluationStatusRunning   EvaluationStatus = "running"
	EvaluationStatusCompleted EvaluationStatus = "completed"
	EvaluationStatusFailed    EvaluationStatus = "failed"
	EvaluationStatusCancelled EvaluationStatus = "cancelled"
)

// NodeStatus represents the terminal status of a node
type NodeStatus string

const (
	NodeStatusOK     NodeStatus = "ok"
	NodeStatusFailed NodeStatus = "failed"
)

// EventSeverity represents the severity level of a recorded diagnostic
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
)

// Evaluation represents one evaluation run over the node graph
type Evaluation struct {
	ID          string           `json:"id"`
	Status      EvaluationStatus `json:"status"`
	RootCount   int              `json:"root_count"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Aggregate counters, filled in when the evaluation finishes.
	Computed    int `json:"computed"`
	Failed      int `json:"failed"`
	Restarts    int `json:"restarts"`
	CacheHits   int `json:"cache_hits"`
	DepRequests int `json:"dep_requests"`
}

// EvaluationStats holds the aggregate counters of a finished evaluation
type EvaluationStats struct {
	Computed    int `json:"computed"`
	Failed      int `json:"failed"`
	Restarts    int `json:"restarts"`
	CacheHits   int `json:"cache_hits"`
	DepRequests int `json:"dep_requests"`
}

// NodeOutcome represents the terminal result of one node in a run
type NodeOutcome struct {
	ID           int64      `json:"id"`
	EvaluationID string     `json:"evaluation_id"`
	Kind         string     `json:"kind"`     // function kind, e.g. "configured_target"
	NodeKey      string     `json:"node_key"` // stable textual key
	Status       NodeStatus `json:"status"`
	ErrorClass   *string    `json:"error_class,omitempty"` // direct, transitive, construction, internal
	ErrorMessage *string    `json:"error_message,omitempty"`
	Restarts     int        `json:"restarts"`
	RecordedAt   time.Time  `json:"recorded_at"`
}

// AnalysisEvent represents a diagnostic emitted while analyzing targets
type AnalysisEvent struct {
	ID           int64         `json:"id"`
	EvaluationID string        `json:"evaluation_id"`
	Severity     EventSeverity `json:"severity"`
	Label        *string       `json:"label,omitempty"` // target label, if attributable
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Evaluation operations
	CreateEvaluation(ctx context.Context, eval *Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*Evaluation, error)
	FinishEvaluation(ctx context.Context, id string, status EvaluationStatus, stats EvaluationStats, err *string) error
	ListEvaluations(ctx context.Context, limit, offset int) ([]*Evaluation, error)
	DeleteEvaluation(ctx context.Context, id string) error

	// NodeOutcome operations
	RecordNodeOutcomes(ctx context.Context, outcomes []*NodeOutcome) error
	GetNodeOutcome(ctx context.Context, evaluationID, nodeKey string) (*NodeOutcome, error)
	ListNodeOutcomes(ctx context.Context, evaluationID string) ([]*NodeOutcome, error)
	ListFailedNodes(ctx context.Context, evaluationID string) ([]*NodeOutcome, error)

	// AnalysisEvent operations
	AppendAnalysisEvent(ctx context.Context, event *AnalysisEvent) error
	ListAnalysisEvents(ctx context.Context, evaluationID *string, severity *EventSeverity, limit, offset int) ([]*AnalysisEvent, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
