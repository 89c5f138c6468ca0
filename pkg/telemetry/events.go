package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the gravel system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// EvaluationID is the associated evaluation ID, if applicable.
	EvaluationID string `json:"evaluation_id,omitempty"`

	// NodeKey is the associated node key, if applicable.
	NodeKey string `json:"node_key,omitempty"`

	// Label is the associated target label, if applicable.
	Label string `json:"label,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeEvaluationStarted   = "evaluation.started"
	EventTypeEvaluationCompleted = "evaluation.completed"
	EventTypeEvaluationFailed    = "evaluation.failed"
	EventTypeNodeComputed        = "node.computed"
	EventTypeNodeRestarted       = "node.restarted"
	EventTypeNodeFailed          = "node.failed"
	EventTypeAnalysisWarning     = "analysis.warning"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishEvaluationStarted publishes an evaluation started event.
func (ep *EventPublisher) PublishEvaluationStarted(evaluationID string, rootCount int) error {
	return ep.Publish(Event{
		Type:         EventTypeEvaluationStarted,
		Source:       "engine",
		EvaluationID: evaluationID,
		Message:      fmt.Sprintf("Evaluation %s started with %d root keys", evaluationID, rootCount),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"root_count": rootCount,
		},
	})
}

// PublishEvaluationCompleted publishes an evaluation completed event.
func (ep *EventPublisher) PublishEvaluationCompleted(evaluationID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeEvaluationCompleted,
		Source:       "engine",
		EvaluationID: evaluationID,
		Message:      fmt.Sprintf("Evaluation %s completed with status: %s", evaluationID, status),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishEvaluationFailed publishes an evaluation failed event.
func (ep *EventPublisher) PublishEvaluationFailed(evaluationID, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypeEvaluationFailed,
		Source:       "engine",
		EvaluationID: evaluationID,
		Message:      fmt.Sprintf("Evaluation %s failed: %s", evaluationID, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishNodeComputed publishes a node computed event.
func (ep *EventPublisher) PublishNodeComputed(evaluationID, nodeKey string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeNodeComputed,
		Source:       "engine",
		EvaluationID: evaluationID,
		NodeKey:      nodeKey,
		Message:      fmt.Sprintf("Node %s computed", nodeKey),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishNodeRestarted publishes a node restarted event.
func (ep *EventPublisher) PublishNodeRestarted(evaluationID, nodeKey string, missingDeps int) error {
	return ep.Publish(Event{
		Type:         EventTypeNodeRestarted,
		Source:       "engine",
		EvaluationID: evaluationID,
		NodeKey:      nodeKey,
		Message:      fmt.Sprintf("Node %s suspended on %d missing dependencies", nodeKey, missingDeps),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"missing_deps": missingDeps,
		},
	})
}

// PublishNodeFailed publishes a node failed event.
func (ep *EventPublisher) PublishNodeFailed(evaluationID, nodeKey, class, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypeNodeFailed,
		Source:       "engine",
		EvaluationID: evaluationID,
		NodeKey:      nodeKey,
		Message:      fmt.Sprintf("Node %s failed: %s", nodeKey, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"class":  class,
			"reason": reason,
		},
	})
}

// PublishAnalysisWarning publishes an analysis warning event for a target.
func (ep *EventPublisher) PublishAnalysisWarning(evaluationID, label, message string) error {
	return ep.Publish(Event{
		Type:         EventTypeAnalysisWarning,
		Source:       "analysis",
		EvaluationID: evaluationID,
		Label:        label,
		Message:      message,
		Level:        EventLevelWarning,
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)

		case <-ep.ctx.Done():
			// Drain remaining events before shutting down
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByEvaluationID creates a filter that only allows events for a specific evaluation.
func FilterByEvaluationID(evaluationID string) EventFilter {
	return func(event Event) bool {
		return event.EvaluationID == evaluationID
	}
}
